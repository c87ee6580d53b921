package record

import (
	"testing"
)

func TestEncryptedValueRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    EncryptedValue
	}{
		{"typical", EncryptedValue{Key: make([]byte, KeyLen), Data: []byte("hello")}},
		{"empty data", EncryptedValue{Key: make([]byte, KeyLen), Data: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromBytes(tt.v.ToBytes())
			if err != nil {
				t.Fatalf("FromBytes() error = %v", err)
			}
			if !got.Equal(tt.v) {
				t.Errorf("round trip mismatch: got %+v, want %+v", got, tt.v)
			}
		})
	}
}

func TestFromBytesTooShort(t *testing.T) {
	if _, err := FromBytes(make([]byte, KeyLen-1)); err == nil {
		t.Fatal("expected error for undersized input")
	}
}

func TestJoinSplitKey(t *testing.T) {
	typ := []byte{1, 2, 3}
	id := []byte{4, 5, 6}
	gotTyp, gotID, err := SplitKey(JoinKey(typ, id))
	if err != nil {
		t.Fatalf("SplitKey() error = %v", err)
	}
	if string(gotTyp) != string(typ) || string(gotID) != string(id) {
		t.Errorf("SplitKey() = (%v, %v), want (%v, %v)", gotTyp, gotID, typ, id)
	}
}

func TestDefaultOptions(t *testing.T) {
	fo := DefaultFetchOptions()
	if !fo.RetrieveValue || fo.RetrieveType || fo.RetrieveTags {
		t.Errorf("unexpected defaults: %+v", fo)
	}

	so := DefaultSearchOptions()
	if !so.RetrieveRecords || so.RetrieveTotalCount {
		t.Errorf("unexpected defaults: %+v", so)
	}
}
