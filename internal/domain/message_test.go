package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeMessage_AllActions(t *testing.T) {
	cases := []struct {
		raw  string
		want Message
	}{
		{`{"action":"START_TRACKING","trackingId":"t1","url":"https://a.example/","min":10,"max":20}`,
			StartTracking{TrackingID: "t1", URL: "https://a.example/", Min: 10, Max: 20}},
		{`{"action":"STOP_TRACKING","trackingId":"t1"}`, StopTracking{TrackingID: "t1"}},
		{`{"action":"REFRESH_NOW","trackingId":"t1","url":"https://a.example/"}`, RefreshNow{TrackingID: "t1", URL: "https://a.example/"}},
		{`{"action":"CONTENT_CHANGED","trackingId":"t1","url":"https://a.example/"}`, ContentChanged{TrackingID: "t1", URL: "https://a.example/"}},
		{`{"action":"CHANGE_DETECTED","trackingId":"t1"}`, ChangeDetected{TrackingID: "t1"}},
	}
	for _, c := range cases {
		got, err := DecodeMessage([]byte(c.raw))
		if err != nil {
			t.Fatalf("DecodeMessage(%s): %v", c.raw, err)
		}
		if got != c.want {
			t.Fatalf("DecodeMessage(%s): want %#v, got %#v", c.raw, c.want, got)
		}
	}
}

func TestDecodeMessage_Errors(t *testing.T) {
	if _, err := DecodeMessage([]byte(`{"action":"EXPLODE","trackingId":"t1"}`)); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("want ErrUnknownAction, got %v", err)
	}
	if _, err := DecodeMessage([]byte(`{"action":"STOP_TRACKING"}`)); err == nil {
		t.Fatalf("expected error for missing trackingId")
	}
	if _, err := DecodeMessage([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestEncodeMessage_IncludesAction(t *testing.T) {
	b, err := EncodeMessage(ChangeDetected{TrackingID: "t1"})
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fields["action"] != "CHANGE_DETECTED" || fields["trackingId"] != "t1" {
		t.Fatalf("unexpected payload: %s", b)
	}

	back, err := DecodeMessage(b)
	if err != nil || back != (ChangeDetected{TrackingID: "t1"}) {
		t.Fatalf("decode encoded message: %#v, %v", back, err)
	}
}
