package cache

import "testing"

func TestDefaultKeyerDeterministic(t *testing.T) {
	k := NewDefaultKeyer()

	a := map[string]any{"x": 1, "y": "two"}
	b := map[string]any{"y": "two", "x": 1}

	keyA, err := k.Key("my-pipeline", a)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	keyB, err := k.Key("my-pipeline", b)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}

	if keyA != keyB {
		t.Fatalf("keys differ for equivalent maps with different iteration order: %q vs %q", keyA, keyB)
	}
}

func TestDefaultKeyerDistinguishesPipelines(t *testing.T) {
	k := NewDefaultKeyer()
	input := map[string]any{"x": 1}

	keyA, err := k.Key("pipeline-a", input)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	keyB, err := k.Key("pipeline-b", input)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}

	if keyA == keyB {
		t.Fatal("expected different pipeline names to produce different keys")
	}
}
