package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"cyklon/internal/model"
)

func sampleEvent() model.LiquidityAdded {
	return model.LiquidityAdded{
		Pool:      common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Owner:     common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Amount0:   18446744073709551615,
		Amount1:   42,
		TickLower: -887220,
		TickUpper: 60,
		Liquidity: "340282366920938463463374607431768211455",
	}
}

func TestLiquidityAddedTopic(t *testing.T) {
	topic, err := LiquidityAddedTopic()
	if err != nil {
		t.Fatalf("topic: %v", err)
	}
	want := crypto.Keccak256Hash([]byte("LiquidityAdded(address,address,uint64,uint64,int32,int32,uint128)"))
	if topic != want {
		t.Fatalf("topic mismatch: %s != %s", topic.Hex(), want.Hex())
	}
}

func TestEncodeDecodeLog(t *testing.T) {
	event := sampleEvent()
	log, err := EncodeLog(event)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if log.Address != event.Pool {
		t.Fatalf("log address mismatch: %s", log.Address.Hex())
	}
	if len(log.Topics) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(log.Topics))
	}
	if log.Topics[2] != common.BytesToHash(event.Owner.Bytes()).Hex() {
		t.Fatalf("owner topic mismatch: %s", log.Topics[2])
	}

	decoded, err := DecodeLog(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != event {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, event)
	}
}

func TestEncodeLogRejectsBadLiquidity(t *testing.T) {
	event := sampleEvent()
	event.Liquidity = "-1"
	if _, err := EncodeLog(event); err == nil {
		t.Fatalf("expected error for negative liquidity")
	}
	event.Liquidity = "340282366920938463463374607431768211456"
	if _, err := EncodeLog(event); err == nil {
		t.Fatalf("expected error for liquidity above uint128")
	}
}

func TestDecodeLogRejectsForeignTopic(t *testing.T) {
	log, err := EncodeLog(sampleEvent())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	log.Topics[0] = crypto.Keccak256Hash([]byte("Other()")).Hex()
	if _, err := DecodeLog(log); err == nil {
		t.Fatalf("expected unsupported topic error")
	}

	log.Topics = log.Topics[:0]
	if _, err := DecodeLog(log); err == nil {
		t.Fatalf("expected missing topics error")
	}
}

func TestJsonlSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	sink := NewJsonlSink(path)

	first := sampleEvent()
	second := sampleEvent()
	second.Amount1 = 7
	second.Liquidity = "12"

	for _, event := range []model.LiquidityAdded{first, second} {
		if err := sink.Publish(context.Background(), event); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	records, err := ReadJsonl(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Event != first || records[1].Event != second {
		t.Fatalf("records mismatch: %+v", records)
	}
	if records[1].EventName != LiquidityAddedName {
		t.Fatalf("event name mismatch: %s", records[1].EventName)
	}
	decoded, err := DecodeLog(records[1].Log)
	if err != nil {
		t.Fatalf("decode journal log: %v", err)
	}
	if decoded != second {
		t.Fatalf("journal log mismatch: %+v", decoded)
	}
}

type failingSink struct{ err error }

func (f failingSink) Publish(context.Context, model.LiquidityAdded) error { return f.err }

type countingSink struct{ calls int }

func (c *countingSink) Publish(context.Context, model.LiquidityAdded) error {
	c.calls++
	return nil
}

func TestMultiSink(t *testing.T) {
	boom := errors.New("boom")
	counter := &countingSink{}
	sink := MultiSink{failingSink{err: boom}, nil, counter, NopSink{}}

	err := sink.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if counter.calls != 1 {
		t.Fatalf("expected later sinks to still receive the event, got %d calls", counter.calls)
	}
}

func TestRedisSink(t *testing.T) {
	url := os.Getenv("CYKLON_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CYKLON_TEST_REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sink, err := NewRedisSink(ctx, url, "cyklon-test:"+t.Name(), nil)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer sink.Close()

	sub := sink.Subscribe(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	event := sampleEvent()
	if err := sink.Publish(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var record model.EventRecord
	if err := json.Unmarshal([]byte(msg.Payload), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record.Event != event {
		t.Fatalf("payload mismatch: %+v", record.Event)
	}
}
