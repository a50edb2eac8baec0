package wire

import (
	"bytes"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestFrameSizeNeedsMore(t *testing.T) {
	if got := FrameSize([]byte{1, 2, 3}); got != 3 {
		t.Fatalf("expected need-more signal of 3, got %d", got)
	}
}

func TestFrameSizeParsesPrefix(t *testing.T) {
	doc, err := bson.Marshal(bson.M{"a": 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := FrameSize(doc); got != len(doc) {
		t.Fatalf("expected %d, got %d", len(doc), got)
	}
}

func TestFrameSizeCapsAtMax(t *testing.T) {
	prefix := []byte{0xff, 0xff, 0xff, 0xff, 0x00}
	if got := FrameSize(prefix); got != MaxFrameSize {
		t.Fatalf("expected cap %d, got %d", MaxFrameSize, got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	doc := bson.M{"action": "retrieve", "database": "db", "collection": "coll"}
	if _, err := Encode(&buf, doc); err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var out bson.M
	if err := bson.Unmarshal(decoded, &out); err != nil {
		t.Fatalf("unmarshal decoded: %v", err)
	}
	if out["action"] != "retrieve" {
		t.Fatalf("expected action retrieve, got %v", out["action"])
	}
}

func TestValidateRejectsShortFrame(t *testing.T) {
	if err := Validate([]byte{1, 2}); err == nil {
		t.Fatal("expected error for too-short frame")
	}
}

func TestValidateRejectsLengthMismatch(t *testing.T) {
	doc, _ := bson.Marshal(bson.M{"a": 1})
	truncated := doc[:len(doc)-1]
	if err := Validate(truncated); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

func TestReassembleReadsFullFrame(t *testing.T) {
	doc, err := bson.Marshal(bson.M{"ok": 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r := bytes.NewReader(doc)

	got, err := Reassemble(r, 4)
	if err != nil {
		t.Fatalf("reassemble: %v", err)
	}
	if !bytes.Equal(got, doc) {
		t.Fatalf("reassembled bytes differ from source")
	}
}
