package lobby

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/mathlan/internal/dependencies/mocks"
	"github.com/mcoot/mathlan/internal/model"
)

type RosterSuite struct {
	suite.Suite
	random *mocks.MockRandom
	roster *Roster
}

func TestRosterSuite(t *testing.T) {
	suite.Run(t, new(RosterSuite))
}

func (s *RosterSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.roster = NewRoster(model.RoomInfo{
		RoomCode:   "ABC234",
		HostName:   "Teacher",
		HostIP:     "192.168.1.5",
		WsPort:     9898,
		Mode:       model.GameModeParty,
		MaxPlayers: 2,
	}, s.random)
}

func (s *RosterSuite) join(name string) model.PlayerState {
	p, err := s.roster.Join(name, "#fff")
	s.Require().NoError(err)
	return p
}

func (s *RosterSuite) TestNewRoomCode() {
	s.random.QueueString("XYZ789")
	s.Equal(model.RoomCode("XYZ789"), NewRoomCode(s.random))
}

func (s *RosterSuite) TestJoinAppendsInOrder() {
	s.random.QueueString("aaaaaa", "bbbbbb")

	alice := s.join("Alice")
	bob := s.join("Bob")

	s.Equal(model.PlayerID("p-aaaaaa"), alice.ID)
	s.Equal(model.PlayerID("p-bbbbbb"), bob.ID)
	s.True(alice.Connected)
	s.False(alice.Ready)
	s.Equal(0, alice.Score)

	snap := s.roster.Snapshot()
	s.Require().Len(snap.Players, 2)
	s.Equal("Alice", snap.Players[0].Name)
	s.Equal("Bob", snap.Players[1].Name)
	s.False(snap.Started)
}

func (s *RosterSuite) TestJoinRetriesCollidingIDs() {
	s.random.QueueString("aaaaaa", "aaaaaa", "cccccc")
	s.join("Alice")
	bob := s.join("Bob")
	s.Equal(model.PlayerID("p-cccccc"), bob.ID)
}

func (s *RosterSuite) TestJoinDefaultsColor() {
	s.random.QueueString("aaaaaa")
	p, err := s.roster.Join("Alice", "")
	s.Require().NoError(err)
	s.Equal(DefaultColor, p.Color)
}

func (s *RosterSuite) TestJoinRejectedWhenFull() {
	s.random.QueueString("aaaaaa", "bbbbbb", "cccccc")
	s.join("Alice")
	s.join("Bob")

	_, err := s.roster.Join("Carol", "")
	s.ErrorIs(err, model.ErrRoomFull)
	s.Len(s.roster.Players(), 2)
}

func (s *RosterSuite) TestDisconnectedPlayersKeepTheirSeat() {
	s.random.QueueString("aaaaaa", "bbbbbb", "cccccc")
	alice := s.join("Alice")
	s.join("Bob")
	s.roster.SetConnected(alice.ID, false)

	_, err := s.roster.Join("Carol", "")
	s.ErrorIs(err, model.ErrRoomFull)
}

func (s *RosterSuite) TestLocalPlayerDoesNotTakeASeat() {
	local := s.roster.AddLocalPlayer("Teacher", "")
	s.Equal(model.LocalPlayerID, local.ID)
	s.Equal(model.DefaultLocalColor, local.Color)
	s.True(local.Ready)
	s.True(local.Connected)

	s.random.QueueString("aaaaaa", "bbbbbb")
	s.join("Alice")
	s.join("Bob")
	s.Equal(2, s.roster.SeatCount())
	s.Len(s.roster.Players(), 3)
}

func (s *RosterSuite) TestAddLocalPlayerIsIdempotent() {
	s.roster.AddLocalPlayer("Teacher", "")
	s.roster.AddLocalPlayer("Teacher", "")
	s.Len(s.roster.Players(), 1)
}

func (s *RosterSuite) TestStartRequiresReadyConnectedPlayer() {
	s.random.QueueString("aaaaaa")
	alice := s.join("Alice")

	s.ErrorIs(s.roster.Start(), model.ErrNoReadyPlayers)
	s.Equal(PhaseForming, s.roster.Phase())

	s.True(s.roster.SetReady(alice.ID, true))
	s.roster.SetConnected(alice.ID, false)
	s.ErrorIs(s.roster.Start(), model.ErrNoReadyPlayers)

	s.roster.SetConnected(alice.ID, true)
	s.NoError(s.roster.Start())
	s.Equal(PhaseStarted, s.roster.Phase())
	s.True(s.roster.Snapshot().Started)
}

func (s *RosterSuite) TestLocalPlayerCanStartAlone() {
	s.roster.AddLocalPlayer("Teacher", "")
	s.NoError(s.roster.Start())
}

func (s *RosterSuite) TestJoinRejectedOnceStarted() {
	s.roster.AddLocalPlayer("Teacher", "")
	s.Require().NoError(s.roster.Start())

	_, err := s.roster.Join("Late", "")
	s.ErrorIs(err, model.ErrGameInProgress)
	s.ErrorIs(s.roster.Start(), model.ErrGameInProgress)
}

func (s *RosterSuite) TestFinishedRoomStaysClosed() {
	s.roster.AddLocalPlayer("Teacher", "")
	s.Require().NoError(s.roster.Start())
	s.roster.Finish()

	s.False(s.roster.Snapshot().Started)
	_, err := s.roster.Join("Late", "")
	s.ErrorIs(err, model.ErrSessionFinished)
	s.ErrorIs(s.roster.Start(), model.ErrSessionFinished)
}

func (s *RosterSuite) TestRejoinReattaches() {
	s.random.QueueString("aaaaaa")
	alice := s.join("Alice")
	s.roster.SetConnected(alice.ID, false)

	p, ok := s.roster.Rejoin(alice.ID)
	s.True(ok)
	s.True(p.Connected)
	s.Equal(alice.ID, p.ID)
}

func (s *RosterSuite) TestRejoinUnknownIsIgnored() {
	_, ok := s.roster.Rejoin("p-nobody")
	s.False(ok)

	s.roster.AddLocalPlayer("Teacher", "")
	_, ok = s.roster.Rejoin(model.LocalPlayerID)
	s.False(ok)
}

func (s *RosterSuite) TestUnknownPlayerMutationsReturnFalse() {
	s.False(s.roster.SetReady("p-nobody", true))
	s.False(s.roster.SetConnected("p-nobody", true))
	s.Nil(s.roster.Player("p-nobody"))
}

func (s *RosterSuite) TestSnapshotIsACopy() {
	s.random.QueueString("aaaaaa")
	alice := s.join("Alice")
	snap := s.roster.Snapshot()
	snap.Players[0].Score = 999

	s.Equal(0, s.roster.Player(alice.ID).Score)
}

func (s *RosterSuite) TestSequentialIDsWhenRandomExhausted() {
	first := s.join("Alice")
	second := s.join("Bob")
	s.Equal(model.PlayerID("p-1"), first.ID)
	s.Equal(model.PlayerID("p-2"), second.ID)
}
