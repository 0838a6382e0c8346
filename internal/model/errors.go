package model

import "errors"

// Common errors used across the application
var (
	// Host errors
	ErrNotHosting      = errors.New("no host session is running")
	ErrRoomFull        = errors.New("room is full")
	ErrNoReadyPlayers  = errors.New("at least one ready player is required")
	ErrGameInProgress  = errors.New("game is in progress")
	ErrSessionFinished = errors.New("session has finished")
	ErrAlreadyJoined   = errors.New("connection has already joined")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrInvalidConfig   = errors.New("invalid host configuration")

	// Client errors
	ErrNotConnected   = errors.New("not connected to a host")
	ErrConnectFailed  = errors.New("unable to connect to host")
	ErrDisconnected   = errors.New("disconnected from host")
	ErrAlreadyRunning = errors.New("already running")

	// Practice errors
	ErrNoQuestion = errors.New("no question is pending")

	// Wire errors
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownMessage   = errors.New("unknown message type")

	// Storage errors
	ErrResultNotFound    = errors.New("round result not found")
	ErrWeakFactsNotFound = errors.New("weak facts not found")
)
