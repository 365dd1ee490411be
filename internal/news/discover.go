package news

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// feedLinkTypes はフィードリンクとして認識するtype属性の値。
var feedLinkTypes = map[string]bool{
	"application/rss+xml":  true,
	"application/atom+xml": true,
}

// discoverFeedURL はHTMLのheadタグから rel="alternate" のフィードリンクを
// 検出し、最適な候補の絶対URLを返す。見つからない場合は空文字列を返す。
// 同一ホストの候補を優先し、同点の場合は先に出現したものを選ぶ。
func discoverFeedURL(htmlBody []byte, baseURL string) string {
	candidates := parseFeedLinks(htmlBody, baseURL)
	if len(candidates) == 0 {
		return ""
	}

	baseHost := extractHost(baseURL)
	best := ""
	bestScore := -1

	for _, candidate := range candidates {
		score := 0
		if extractHost(candidate) == baseHost {
			score += 100
		}
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}

	return best
}

// parseFeedLinks はheadタグ内のlink要素からフィードURLを収集する。
// 相対URLはbaseURLを基準に絶対URLへ解決する。
func parseFeedLinks(htmlBody []byte, baseURL string) []string {
	baseU, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var found []string
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return found

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}
			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				return found
			}
			if !inHead || tagName != "link" || !hasAttr {
				continue
			}

			var rel, linkType, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
				if !more {
					break
				}
			}

			if rel != "alternate" || href == "" || !feedLinkTypes[linkType] {
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			found = append(found, baseU.ResolveReference(ref).String())

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return found
			}
		}
	}
}

// extractHost はURLからホスト名を小文字で抽出する。
func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
