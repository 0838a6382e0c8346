package redis

import "fmt"

// Key generation functions for each entity type

// roundKey returns the Redis key for a RoundResult
func (s *Storage) roundKey(id string) string {
	return fmt.Sprintf("%s:round:%s", s.cfg.KeyPrefix, id)
}

// roundsIndexKey returns the Redis key for the ZSET of rounds scored by end time
func (s *Storage) roundsIndexKey() string {
	return fmt.Sprintf("%s:idx:rounds", s.cfg.KeyPrefix)
}

// weakFactsKey returns the Redis key for a profile's weak-fact map
func (s *Storage) weakFactsKey(profile string) string {
	return fmt.Sprintf("%s:weakfacts:%s", s.cfg.KeyPrefix, profile)
}
