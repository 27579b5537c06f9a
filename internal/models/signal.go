package models

import "time"

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// AlertEvent — готовый сигнал для отправки, создаётся один раз на срабатывание.
type AlertEvent struct {
	Symbol       string
	Direction    Direction
	EntryPrice   Value
	ReentryPrice Value
	StopLoss     Value
	Target1      Value
	Target2      Value
	Target3      Value
	Leverage     int
	At           time.Time
}
