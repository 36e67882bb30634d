package checksum

import (
	"encoding/json"
	"strings"
	"testing"
)

func newTestSigner() *Signer {
	return NewSigner("test-secret-key")
}

func TestSign_DeterministicAcrossKeyOrder(t *testing.T) {
	// Logically identical payloads with different key order must produce
	// the same checksum - that's the whole point of canonicalization.
	s := newTestSigner()

	var a, b any
	if err := json.Unmarshal([]byte(`{"amount": 100, "orderId": "o-1", "nested": {"x": 1, "y": 2}}`), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"nested": {"y": 2, "x": 1}, "orderId": "o-1", "amount": 100}`), &b); err != nil {
		t.Fatal(err)
	}

	sumA, err := s.Sign(a)
	if err != nil {
		t.Fatalf("sign a: %v", err)
	}
	sumB, err := s.Sign(b)
	if err != nil {
		t.Fatalf("sign b: %v", err)
	}

	if sumA != sumB {
		t.Errorf("checksums differ for reordered payloads:\n  a: %s\n  b: %s", sumA, sumB)
	}
}

func TestSign_StructAndMapProduceSameChecksum(t *testing.T) {
	// A struct payload and its map equivalent should canonicalize identically.
	s := newTestSigner()

	type payload struct {
		OrderID string  `json:"orderId"`
		Amount  float64 `json:"amount"`
	}

	sumStruct, err := s.Sign(payload{OrderID: "o-42", Amount: 99.5})
	if err != nil {
		t.Fatal(err)
	}
	sumMap, err := s.Sign(map[string]any{"amount": 99.5, "orderId": "o-42"})
	if err != nil {
		t.Fatal(err)
	}

	if sumStruct != sumMap {
		t.Errorf("struct and map checksums differ: %s vs %s", sumStruct, sumMap)
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	s := newTestSigner()

	payload := map[string]any{
		"merchantOrderId": "order-123",
		"amount":          250.75,
		"status":          "SUCCESS",
	}

	sum, err := s.Sign(payload)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := s.Verify(payload, sum)
	if err != nil {
		t.Fatalf("verify returned error: %v", err)
	}
	if !ok {
		t.Error("verify(payload, sign(payload)) should be true")
	}
}

func TestVerify_IgnoresEmbeddedChecksumField(t *testing.T) {
	// The checksum field is excluded from the signed content, so verifying
	// an envelope that carries its own tag must still pass.
	s := newTestSigner()

	payload := map[string]any{"orderId": "o-9", "amount": 10.0}
	sum, err := s.Sign(payload)
	if err != nil {
		t.Fatal(err)
	}

	envelope := map[string]any{"orderId": "o-9", "amount": 10.0, "checksum": sum}
	ok, err := s.Verify(envelope, sum)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("verification should succeed when the envelope includes its own checksum field")
	}
}

func TestVerify_FlippedByteFails(t *testing.T) {
	// Flipping any nibble of the checksum must fail verification.
	s := newTestSigner()

	payload := map[string]any{"orderId": "o-1", "amount": 42.0}
	sum, err := s.Sign(payload)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < len(sum); i++ {
		mutated := []byte(sum)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		ok, err := s.Verify(payload, string(mutated))
		if err != nil {
			t.Fatalf("flip at %d: unexpected error: %v", i, err)
		}
		if ok {
			t.Fatalf("flip at %d: verification passed with corrupted checksum", i)
		}
	}
}

func TestVerify_TamperedPayloadFails(t *testing.T) {
	s := newTestSigner()

	payload := map[string]any{"orderId": "o-1", "amount": 42.0}
	sum, err := s.Sign(payload)
	if err != nil {
		t.Fatal(err)
	}

	payload["amount"] = 42000.0
	ok, err := s.Verify(payload, sum)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("verification passed after the amount was mutated")
	}
}

func TestVerify_MalformedHexIsError(t *testing.T) {
	// Mismatch is (false, nil); malformed hex is the one error case.
	s := newTestSigner()

	_, err := s.Verify(map[string]any{"a": 1}, "not-hex-at-all")
	if err == nil {
		t.Error("expected an error for malformed hex input")
	}
}

func TestVerify_DifferentSecretsFail(t *testing.T) {
	payload := map[string]any{"orderId": "o-1"}

	sum, err := NewSigner("secret-one").Sign(payload)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := NewSigner("secret-two").Verify(payload, sum)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("a checksum signed with one secret verified under another")
	}
}

func TestCanonicalize_ArraysPreserveOrder(t *testing.T) {
	// Arrays are order-sensitive; only object keys get sorted.
	s := newTestSigner()

	sumA, err := s.Sign(map[string]any{"items": []any{1.0, 2.0, 3.0}})
	if err != nil {
		t.Fatal(err)
	}
	sumB, err := s.Sign(map[string]any{"items": []any{3.0, 2.0, 1.0}})
	if err != nil {
		t.Fatal(err)
	}

	if sumA == sumB {
		t.Error("reordered array elements should change the checksum")
	}
}

func TestCanonicalize_CompactSortedForm(t *testing.T) {
	s := newTestSigner()

	var payload any
	if err := json.Unmarshal([]byte(`{"b": [2, 1], "a": {"z": true, "m": null}}`), &payload); err != nil {
		t.Fatal(err)
	}

	canonical, err := s.Canonicalize(payload)
	if err != nil {
		t.Fatal(err)
	}

	want := `{"a":{"m":null,"z":true},"b":[2,1]}`
	if string(canonical) != want {
		t.Errorf("canonical form mismatch:\n  got:  %s\n  want: %s", canonical, want)
	}
}

func TestSignRaw_VerifyRaw(t *testing.T) {
	s := newTestSigner()

	manifest := "order-1|15000|1700000000"
	tag := s.SignRaw([]byte(manifest))

	if !s.VerifyRaw([]byte(manifest), tag) {
		t.Error("VerifyRaw should accept its own SignRaw output")
	}
	if s.VerifyRaw([]byte("order-1|99999|1700000000"), tag) {
		t.Error("VerifyRaw should reject a mutated manifest")
	}
	if s.VerifyRaw([]byte(manifest), strings.Repeat("0", len(tag))) {
		t.Error("VerifyRaw should reject a zeroed tag")
	}
}
