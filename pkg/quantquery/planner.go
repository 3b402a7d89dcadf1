package quantquery

import (
	"regexp"
	"strings"
	"time"
)

// toolAliases are secondary phrases that imply a tool when the registry name
// itself is absent from the query. Both scripts are matched against the
// lower-cased query.
var toolAliases = map[string][]string{
	"sma":    {"moving average", "moving-average", "均线", "移动平均"},
	"rsi":    {"relative strength", "相对强弱", "超买", "超卖"},
	"zscore": {"z-score", "z score", "spread", "pair trade", "价差", "配对"},
}

// companyKeywords maps company-name keywords (both scripts) to ticker
// symbols. Scanned in order against the lower-cased query.
var companyKeywords = []struct {
	Keyword string
	Symbol  string
}{
	{"apple", "AAPL"}, {"苹果", "AAPL"},
	{"microsoft", "MSFT"}, {"微软", "MSFT"},
	{"google", "GOOGL"}, {"alphabet", "GOOGL"}, {"谷歌", "GOOGL"},
	{"amazon", "AMZN"}, {"亚马逊", "AMZN"},
	{"tesla", "TSLA"}, {"特斯拉", "TSLA"},
	{"nvidia", "NVDA"}, {"英伟达", "NVDA"},
	{"meta", "META"}, {"facebook", "META"},
	{"netflix", "NFLX"}, {"奈飞", "NFLX"},
	{"alibaba", "BABA"}, {"阿里巴巴", "BABA"},
	{"tencent", "TCEHY"}, {"腾讯", "TCEHY"},
}

// Pre-compiled matchers for relative date-window phrasing. Ordered; the
// first successful match wins.
var (
	reEnglishRelative = regexp.MustCompile(`(?:past|last|trailing|previous)\s+([a-z0-9半]+)[\s-]+(days?|weeks?|months?|years?)\b`)
	reCompactPeriod   = regexp.MustCompile(`\b(\d+)\s*(d|w|mo|m|y)\b`)
	reChineseRelative = regexp.MustCompile(`(?:过去|最近|近)([〇零一二三四五六七八九十两半\d]+)(个月|天|日|周|星期|月|年)`)
	reUppercaseToken  = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
)

// namedWindows are fixed phrases that denote a whole window without an
// explicit quantity. Quantities are in months.
var namedWindows = []struct {
	Phrase string
	Months int
}{
	{"last year", 12}, {"past year", 12}, {"去年", 12}, {"过去一年", 12},
	{"last half", 6}, {"past half", 6}, {"半年", 6},
}

// dateMatcher attempts to derive a lookback window from a lower-cased query.
type dateMatcher struct {
	Name    string
	Resolve func(lowered string, end time.Time) (time.Time, bool)
}

// dateMatchers is the ordered fallback chain for date-window extraction.
var dateMatchers = []dateMatcher{
	{Name: "english-relative", Resolve: matchEnglishRelative},
	{Name: "chinese-relative", Resolve: matchChineseRelative},
	{Name: "compact-shorthand", Resolve: matchCompactPeriod},
	{Name: "named-window", Resolve: matchNamedWindow},
}

func matchEnglishRelative(lowered string, end time.Time) (time.Time, bool) {
	m := reEnglishRelative.FindStringSubmatch(lowered)
	if m == nil {
		return time.Time{}, false
	}
	return resolveQuantityUnit(m[1], m[2], end)
}

func matchChineseRelative(lowered string, end time.Time) (time.Time, bool) {
	m := reChineseRelative.FindStringSubmatch(lowered)
	if m == nil {
		return time.Time{}, false
	}
	return resolveQuantityUnit(m[1], m[2], end)
}

func matchCompactPeriod(lowered string, end time.Time) (time.Time, bool) {
	m := reCompactPeriod.FindStringSubmatch(lowered)
	if m == nil {
		return time.Time{}, false
	}
	return resolveQuantityUnit(m[1], m[2], end)
}

func matchNamedWindow(lowered string, end time.Time) (time.Time, bool) {
	for _, window := range namedWindows {
		if strings.Contains(lowered, window.Phrase) {
			return addMonthsClamped(end, -window.Months), true
		}
	}
	return time.Time{}, false
}

// resolveQuantityUnit converts a (quantity token, unit token) pair into a
// start date. The half-year shorthand always denotes six months whatever
// unit followed it.
func resolveQuantityUnit(quantityToken, unitToken string, end time.Time) (time.Time, bool) {
	if quantityToken == "half" || quantityToken == "半" {
		return addMonthsClamped(end, -halfYearMonths), true
	}
	quantity, ok := ParseQuantity(quantityToken)
	if !ok {
		return time.Time{}, false
	}
	return ResolveLookback(end, quantity, unitToken)
}

// extractDateWindow runs the matcher chain; the first success wins. Both
// bounds stay unspecified when nothing matches.
func extractDateWindow(lowered string, end time.Time) (*time.Time, *time.Time) {
	for _, matcher := range dateMatchers {
		if start, ok := matcher.Resolve(lowered, end); ok {
			startDate := dateOnly(start)
			endDate := dateOnly(end)
			return &startDate, &endDate
		}
	}
	return nil, nil
}

// extractTools selects registry tools literally named in the query, then
// falls back to phrase aliases, then to the whole registry.
func extractTools(lowered string) []string {
	var selected []string
	for _, name := range toolNames {
		if strings.Contains(lowered, name) {
			selected = append(selected, name)
		}
	}
	if len(selected) > 0 {
		return selected
	}
	for _, name := range toolNames {
		for _, alias := range toolAliases[name] {
			if strings.Contains(lowered, alias) {
				selected = append(selected, name)
				break
			}
		}
	}
	if len(selected) > 0 {
		return selected
	}
	return append([]string(nil), toolNames...)
}

// extractTickers collects bare uppercase tokens of length 1-5 that are not
// tool names, then appends company-keyword matches, deduplicating while
// preserving first-seen order.
func extractTickers(query, lowered string) []string {
	var tickers []string
	seen := make(map[string]bool)
	add := func(symbol string) {
		if symbol == "" || seen[symbol] {
			return
		}
		seen[symbol] = true
		tickers = append(tickers, symbol)
	}

	for _, token := range reUppercaseToken.FindAllString(query, -1) {
		if isToolName(strings.ToLower(token)) {
			continue
		}
		add(token)
	}
	for _, entry := range companyKeywords {
		if strings.Contains(lowered, entry.Keyword) {
			add(entry.Symbol)
		}
	}
	return tickers
}

// HeuristicPlan derives a query plan purely from pattern matching. It always
// succeeds; unmatched fields stay unspecified.
func HeuristicPlan(query string, now time.Time) QueryPlan {
	lowered := strings.ToLower(query)
	start, end := extractDateWindow(lowered, now)
	return QueryPlan{
		Tools:     extractTools(lowered),
		Tickers:   extractTickers(query, lowered),
		StartDate: start,
		EndDate:   end,
	}
}
