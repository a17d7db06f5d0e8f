package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Action string

const (
	ActionStartTracking  Action = "START_TRACKING"
	ActionStopTracking   Action = "STOP_TRACKING"
	ActionRefreshNow     Action = "REFRESH_NOW"
	ActionContentChanged Action = "CONTENT_CHANGED"
	ActionChangeDetected Action = "CHANGE_DETECTED"
)

var ErrUnknownAction = errors.New("unknown message action")

// Message est l'union des messages échangés entre surfaces.
// L'ensemble est fermé: seules les structures de ce package l'implémentent.
type Message interface {
	Action() Action
	TargetID() string
	isMessage()
}

type StartTracking struct {
	TrackingID string `json:"trackingId"`
	URL        string `json:"url,omitempty"`
	Min        int    `json:"min,omitempty"`
	Max        int    `json:"max,omitempty"`
}

type StopTracking struct {
	TrackingID string `json:"trackingId"`
}

type RefreshNow struct {
	TrackingID string `json:"trackingId"`
	URL        string `json:"url,omitempty"`
}

// ContentChanged est émis par le détecteur quand le hash du texte visible diffère.
type ContentChanged struct {
	TrackingID string `json:"trackingId"`
	URL        string `json:"url,omitempty"`
}

// ChangeDetected est diffusé aux tableaux de bord après comptabilisation du changement.
type ChangeDetected struct {
	TrackingID string `json:"trackingId"`
}

func (StartTracking) Action() Action  { return ActionStartTracking }
func (StopTracking) Action() Action   { return ActionStopTracking }
func (RefreshNow) Action() Action     { return ActionRefreshNow }
func (ContentChanged) Action() Action { return ActionContentChanged }
func (ChangeDetected) Action() Action { return ActionChangeDetected }

func (m StartTracking) TargetID() string  { return m.TrackingID }
func (m StopTracking) TargetID() string   { return m.TrackingID }
func (m RefreshNow) TargetID() string     { return m.TrackingID }
func (m ContentChanged) TargetID() string { return m.TrackingID }
func (m ChangeDetected) TargetID() string { return m.TrackingID }

func (StartTracking) isMessage()  {}
func (StopTracking) isMessage()   {}
func (RefreshNow) isMessage()     {}
func (ContentChanged) isMessage() {}
func (ChangeDetected) isMessage() {}

type envelope struct {
	Action Action `json:"action"`
}

// DecodeMessage lit un message JSON à plat ({"action": "...", "trackingId": ...}).
func DecodeMessage(b []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}

	var msg Message
	var err error
	switch env.Action {
	case ActionStartTracking:
		var m StartTracking
		err = json.Unmarshal(b, &m)
		msg = m
	case ActionStopTracking:
		var m StopTracking
		err = json.Unmarshal(b, &m)
		msg = m
	case ActionRefreshNow:
		var m RefreshNow
		err = json.Unmarshal(b, &m)
		msg = m
	case ActionContentChanged:
		var m ContentChanged
		err = json.Unmarshal(b, &m)
		msg = m
	case ActionChangeDetected:
		var m ChangeDetected
		err = json.Unmarshal(b, &m)
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}
	if err != nil {
		return nil, err
	}
	if msg.TargetID() == "" {
		return nil, errors.New("missing trackingId")
	}
	return msg, nil
}

// EncodeMessage produit la forme à plat, action incluse.
func EncodeMessage(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	fields["action"] = msg.Action()
	return json.Marshal(fields)
}
