// Package model はドメインモデルを定義する。
package model

import "time"

// Event はボランティアイベントを表す。
// TitleとDescriptionは保存前にサニタイズ済みのプレーンテキスト。
type Event struct {
	ID          string
	Title       string
	Description string
	Date        time.Time
	Location    string
	Category    string
	OrganizerID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
