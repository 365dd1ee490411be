// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は利用者入力とニュース記事のHTMLをサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリの許可リストベースのポリシーを使用する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はコンテンツのサニタイズ機能のインターフェースを定義する。
// イベントの保存前およびニュース記事の保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeText は入力からHTMLタグを全て除去したプレーンテキストを返す。
	// イベントのタイトル・説明文など、マークアップを一切含まない
	// フィールドの保存前に使用する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(input string) string

	// SanitizeSummary はニュース記事の要約HTMLをサニタイズして安全なHTMLを返す。
	// 基本的な整形タグ（p, br, ul, ol, li, blockquote, strong, em, a）のみを
	// 通過させ、script, iframe, styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	SanitizeSummary(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// 2種類のbluemondayポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	textPolicy    *bluemonday.Policy
	summaryPolicy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのポリシーを構築する。
//   - textPolicy: StrictPolicy。全てのタグを除去しテキストのみ残す
//   - summaryPolicy: 整形タグのみ許可。リンクは外部遷移として安全化
func NewContentSanitizer() *contentSanitizer {
	summary := bluemonday.NewPolicy()

	// 許可タグの設定（属性なしのシンプルなタグ）
	// script, iframe, style等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される
	summary.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em",
	)

	// aタグの設定:
	// - href属性を許可、相対URLは不許可（外部フィード由来のため）
	// - target="_blank" と rel="noreferrer noopener" を強制付与
	summary.AllowAttrs("href").OnElements("a")
	summary.AllowStandardURLs()
	summary.AllowRelativeURLs(false)
	summary.AddTargetBlankToFullyQualifiedLinks(true)
	summary.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		textPolicy:    bluemonday.StrictPolicy(),
		summaryPolicy: summary,
	}
}

// SanitizeText は入力からHTMLタグを全て除去したプレーンテキストを返す。
// 前後の空白も併せて除去する。
func (s *contentSanitizer) SanitizeText(input string) string {
	return strings.TrimSpace(s.textPolicy.Sanitize(input))
}

// SanitizeSummary はニュース記事の要約HTMLをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeSummary(rawHTML string) string {
	return s.summaryPolicy.Sanitize(rawHTML)
}
