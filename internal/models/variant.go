package models

import (
	"fmt"
	"strings"
)

// Variant is the kind of booking. It is chosen once, at creation.
type Variant string

const (
	VariantOneTime Variant = "one_time"
	VariantSeries  Variant = "series"
	VariantMeeting Variant = "meeting"
	VariantTask    Variant = "task"
)

// Variants lists every booking variant in display order.
var Variants = []Variant{VariantOneTime, VariantSeries, VariantMeeting, VariantTask}

func (v Variant) Valid() bool {
	switch v {
	case VariantOneTime, VariantSeries, VariantMeeting, VariantTask:
		return true
	default:
		return false
	}
}

func (v Variant) String() string {
	return string(v)
}

// ParseVariant accepts the canonical value and a couple of spellings the
// console used ("onetime", "one-time").
func ParseVariant(raw string) (Variant, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	if s == "onetime" {
		s = string(VariantOneTime)
	}
	v := Variant(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown booking variant %q", raw)
	}
	return v, nil
}
