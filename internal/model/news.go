// Package model はドメインモデルを定義する。
package model

import "time"

// NewsItem はニュースページ向けに集約したフィード記事を表す。
// (Source, GUID) の組で同一性を判定する。
type NewsItem struct {
	ID          string
	Source      string
	GUID        string
	Title       string
	Link        string
	Summary     string
	PublishedAt time.Time
	FetchedAt   time.Time
}
