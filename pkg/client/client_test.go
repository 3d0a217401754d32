package client

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/shoenig/test/must"
	"github.com/shoenig/test/wait"

	"github.com/abennett/ttt/pkg/messages"
	"github.com/abennett/ttt/pkg/server"
)

func TestHostUrl(t *testing.T) {
	t.Parallel()
	u, err := hostUrl("http://localhost:8080", "table one")
	must.NoError(t, err)
	must.Eq(t, "ws://localhost:8080/rooms/table%20one", u)

	u, err = hostUrl("https://example.com/", "t")
	must.NoError(t, err)
	must.Eq(t, "wss://example.com/rooms/t", u)

	_, err = hostUrl("ftp://example.com", "t")
	must.Error(t, err)

	_, err = hostUrl("http://example.com", "")
	must.Error(t, err)
}

func TestSingleClient(t *testing.T) {
	t.Parallel()
	srv := server.NewServer()
	mux := server.NewMux(srv)
	testSrv := httptest.NewServer(mux)
	defer testSrv.Close()

	client, err := New(testSrv.URL, "test1", "tester", nil)
	must.NoError(t, err)

	err = client.Init("2d6+3")
	must.NoError(t, err)

	must.Wait(t, wait.InitialSuccess(wait.BoolFunc(func() bool {
		return len(client.State().Rolls) > 0
	})))

	state, err := client.ReadUpdate()
	must.NoError(t, err)
	must.SliceLen(t, 1, state.Rolls)
	roll := state.Rolls[0]
	must.Eq(t, "tester", roll.User)
	must.Eq(t, "2d6+3", roll.Notation)
	must.Eq(t, "", roll.Error)
	must.Between(t, 5, roll.Result, 15)

	must.Eq(t, srv.GetRooms()["test1"], client.State())
}

func TestRollErrorIsReported(t *testing.T) {
	t.Parallel()
	srv := server.NewServer()
	testSrv := httptest.NewServer(server.NewMux(srv))
	defer testSrv.Close()

	client, err := New(testSrv.URL, "bad", "tester", io.Discard)
	must.NoError(t, err)
	must.NoError(t, client.Init("1d7"))

	state, err := client.ReadUpdate()
	must.NoError(t, err)
	must.SliceLen(t, 1, state.Rolls)
	must.StrContains(t, state.Rolls[0].Error, "unknown die size")
}

func TestMultipleClients(t *testing.T) {
	t.Parallel()
	srv := server.NewServer()
	mux := server.NewMux(srv)
	testSrv := httptest.NewServer(mux)
	defer testSrv.Close()

	client1, err := New(testSrv.URL, "test1", "tester1", nil)
	must.NoError(t, err)

	client2, err := New(testSrv.URL, "test1", "tester2", nil)
	must.NoError(t, err)

	err = client1.Init("")
	must.NoError(t, err)

	must.Wait(t, wait.InitialSuccess(wait.BoolFunc(func() bool {
		return client1.State().Version == 1
	})))

	err = client2.Init("")
	must.NoError(t, err)

	must.MapContainsKey(t, srv.GetRooms(), "test1")
	must.Wait(t, wait.InitialSuccess(wait.BoolFunc(func() bool {
		return client1.State().Version == 2
	})))
	must.Wait(t, wait.InitialSuccess(wait.BoolFunc(func() bool {
		return client2.State().Version == 2
	})))

	roomState := srv.GetRooms()["test1"]
	must.Eq(t, roomState, client1.State())
	must.Eq(t, roomState, client2.State())
	must.Eq(t, server.DefaultRoomDice, roomState.Dice)
	for _, roll := range roomState.Rolls {
		must.Between(t, 1, roll.Result, 20)
	}
}

func TestReadUpdateKeepsLatest(t *testing.T) {
	t.Parallel()
	srv := server.NewServer()
	testSrv := httptest.NewServer(server.NewMux(srv))
	defer testSrv.Close()

	client, err := New(testSrv.URL, "latest", "tester", io.Discard)
	must.NoError(t, err)
	must.NoError(t, client.Init("1d4"))

	// Nothing reads updates while the rolls land, so older states are
	// replaced rather than blocking the connection.
	for _, notation := range []string{"1d6", "1d8", "1d10"} {
		must.NoError(t, client.Roll(notation))
	}
	must.Wait(t, wait.InitialSuccess(wait.BoolFunc(func() bool {
		return client.State().Version == 4
	})))

	var state messages.RoomState
	for state.Version < 4 {
		state, err = client.ReadUpdate()
		must.NoError(t, err)
	}
	must.EqOp(t, "1d10", state.Rolls[0].Notation)
	must.NoError(t, client.Close())
}
