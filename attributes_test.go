package mysql

import "testing"

func decodeAttributePairs(t *testing.T, body string) map[string]string {
	t.Helper()
	out := map[string]string{}
	b := []byte(body)
	for len(b) > 0 {
		key, _, n, err := readLengthEncodedString(b)
		if err != nil {
			t.Fatalf("decoding key: %v", err)
		}
		b = b[n:]
		val, _, n, err := readLengthEncodedString(b)
		if err != nil {
			t.Fatalf("decoding value: %v", err)
		}
		b = b[n:]
		out[string(key)] = string(val)
	}
	return out
}

func TestEncodeConnectionAttributesDefaults(t *testing.T) {
	cfg := NewConfig()
	attrs := decodeAttributePairs(t, encodeConnectionAttributes(cfg))

	if attrs["_client_name"] != driverName {
		t.Errorf("_client_name = %q, want %q", attrs["_client_name"], driverName)
	}
	if attrs["_client_version"] != driverVersion {
		t.Errorf("_client_version = %q, want %q", attrs["_client_version"], driverVersion)
	}
	if _, ok := attrs["_os"]; !ok {
		t.Error("missing _os attribute")
	}
	if _, ok := attrs["_client_session_id"]; !ok {
		t.Error("missing _client_session_id attribute")
	}
}

func TestEncodeConnectionAttributesCustom(t *testing.T) {
	cfg := NewConfig(WithConnectionAttribute("app", "billing"))
	attrs := decodeAttributePairs(t, encodeConnectionAttributes(cfg))

	if attrs["app"] != "billing" {
		t.Errorf("app = %q, want billing", attrs["app"])
	}
}

func TestEncodeConnectionAttributesSessionIDVaries(t *testing.T) {
	cfg := NewConfig()
	a := decodeAttributePairs(t, encodeConnectionAttributes(cfg))
	b := decodeAttributePairs(t, encodeConnectionAttributes(cfg))
	if a["_client_session_id"] == b["_client_session_id"] {
		t.Error("expected distinct session ids across calls")
	}
}
