// Package query remembers the media URLs the user entered and suggests them back.
package query

import (
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
	"github.com/yks-player/yks/filesystem"
	"github.com/yks-player/yks/key"
	"github.com/yks-player/yks/where"
	"golang.org/x/exp/slices"
)

type record struct {
	Rank int    `json:"rank"`
	URL  string `json:"url"`
}

var cacher = gache.New[map[string]*record](
	&gache.Options{
		Path:       where.URLs(),
		FileSystem: &filesystem.GacheFs{},
	},
)

var mu sync.Mutex

func load() map[string]*record {
	cached, expired, err := cacher.Get()
	if expired || err != nil || cached == nil {
		return make(map[string]*record)
	}
	return cached
}

// Remember records url, or raises its rank if it was entered before.
func Remember(url string, weight int) error {
	url = sanitize(url)
	if url == "" {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	cached := load()
	if r, ok := cached[url]; ok {
		r.Rank += weight
	} else {
		cached[url] = &record{Rank: weight, URL: url}
	}

	return cacher.Set(cached)
}

// Suggest returns the best ranked URL matching the partial input.
func Suggest(partial string) mo.Option[string] {
	suggestions := SuggestMany(partial)
	if len(suggestions) == 0 {
		return mo.None[string]()
	}
	return mo.Some(suggestions[0])
}

// SuggestMany returns the URLs fuzzily matching the partial input, best ranked first.
func SuggestMany(partial string) []string {
	if !viper.GetBool(key.DownloadsSuggest) {
		return []string{}
	}

	partial = sanitize(partial)

	mu.Lock()
	cached := load()
	mu.Unlock()

	records := lo.Filter(lo.Values(cached), func(r *record, _ int) bool {
		return fuzzy.MatchFold(partial, r.URL)
	})

	slices.SortFunc(records, func(a, b *record) int {
		if a.Rank != b.Rank {
			return b.Rank - a.Rank
		}
		return strings.Compare(a.URL, b.URL)
	})

	return lo.Map(records, func(r *record, _ int) string {
		return r.URL
	})
}

// sanitize trims the input. URLs keep their case since video ids are case sensitive.
func sanitize(url string) string {
	return strings.TrimSpace(url)
}
