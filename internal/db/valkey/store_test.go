package valkey

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/docmatch/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_NoAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "Templates-0")).
		Return(mock.Result(mock.RedisString(`{"v":1}`)))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "Templates-0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"v":1}` {
		t.Errorf("data = %q", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "missing")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.ErrorResult(errors.New("connection reset")))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "k")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpGet {
		t.Errorf("expected db.Error with op GET, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "doc-1", "payload")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.Set(context.Background(), "doc-1", []byte("payload")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDel_Existing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "doc-1")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	ok, err := s.Del(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected deleted=true")
	}
}

func TestExists_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "doc-1")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c)
	ok, err := s.Exists(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected exists=false")
	}
}

// --- list.go tests ---

func TestRPush_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "RPUSH" && cmd[1] == "requestQueue"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.RPush(context.Background(), "requestQueue", []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRPush_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(errors.New("READONLY")))

	s := NewStoreForTest(c)
	err := s.RPush(context.Background(), "requestQueue", []byte(`{}`))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpRPush {
		t.Errorf("expected db.Error with op RPUSH, got %v", err)
	}
}

func TestLPop_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("LPOP", "requestQueue")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.LPop(context.Background(), "requestQueue")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestLPop_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("LPOP", "requestQueue")).
		Return(mock.Result(mock.RedisString("item")))

	s := NewStoreForTest(c)
	data, err := s.LPop(context.Background(), "requestQueue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "item" {
		t.Errorf("data = %q, want item", data)
	}
}

func TestLLen(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("LLEN", "requestQueue")).
		Return(mock.Result(mock.RedisInt64(3)))

	s := NewStoreForTest(c)
	n, err := s.LLen(context.Background(), "requestQueue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("len = %d, want 3", n)
	}
}

// --- pubsub.go tests ---

func TestPublish_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PUBLISH", "after-analysis", "hello")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Publish(context.Background(), "after-analysis", []byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubscribe_DeliversMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Receive(gomock.Any(), mock.Match("SUBSCRIBE", "analysis", "web-analysis"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ any, fn func(rueidis.PubSubMessage)) error {
			fn(rueidis.PubSubMessage{Channel: "analysis", Message: "m1"})
			fn(rueidis.PubSubMessage{Channel: "web-analysis", Message: "m2"})
			return context.Canceled
		})

	s := NewStoreForTest(c)
	var got []string
	err := s.Subscribe(context.Background(), func(channel string, payload []byte) {
		got = append(got, channel+":"+string(payload))
	}, "analysis", "web-analysis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "analysis:m1" || got[1] != "web-analysis:m2" {
		t.Errorf("unexpected messages: %v", got)
	}
}

func TestSubscribe_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Receive(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("connection closed"))

	s := NewStoreForTest(c)
	err := s.Subscribe(context.Background(), func(string, []byte) {}, "analysis")
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSubscribe {
		t.Errorf("expected db.Error with op SUBSCRIBE, got %v", err)
	}
}
