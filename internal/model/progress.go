package model

import (
	"encoding/json"
	"fmt"
)

// ProgressMode tells whether a node's percentage is derived from the
// timeline or pinned by a user.
type ProgressMode uint8

const (
	ModeAuto ProgressMode = iota
	ModeManual
)

func (m ProgressMode) String() string {
	if m == ModeManual {
		return "manual"
	}
	return "auto"
}

// Progress is a completion percentage (0-100) tagged with its mode.
// Values are only built through Auto and Manual, so a pinned value can
// never be mistaken for a computed one. The zero value is Auto(0).
type Progress struct {
	mode  ProgressMode
	value int
}

// Auto returns a computed percentage. The engine may overwrite it.
func Auto(v int) Progress {
	return Progress{mode: ModeAuto, value: clampPercent(v)}
}

// Manual returns a pinned percentage that automatic passes must skip.
func Manual(v int) Progress {
	return Progress{mode: ModeManual, value: clampPercent(v)}
}

func (p Progress) Value() int { return p.value }

func (p Progress) Mode() ProgressMode { return p.mode }

func (p Progress) IsManual() bool { return p.mode == ModeManual }

// Unpinned keeps the current value but hands the node back to the engine.
func (p Progress) Unpinned() Progress { return Auto(p.value) }

// Pinned freezes the current value.
func (p Progress) Pinned() Progress { return Manual(p.value) }

func (p Progress) String() string {
	return fmt.Sprintf("%d%% (%s)", p.value, p.mode)
}

type progressJSON struct {
	Value    int  `json:"value"`
	IsManual bool `json:"is_manual"`
}

func (p Progress) MarshalJSON() ([]byte, error) {
	return json.Marshal(progressJSON{Value: p.value, IsManual: p.IsManual()})
}

func (p *Progress) UnmarshalJSON(data []byte) error {
	var raw progressJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.IsManual {
		*p = Manual(raw.Value)
	} else {
		*p = Auto(raw.Value)
	}
	return nil
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
