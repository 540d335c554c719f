// Package resolver expands requested identifiers into the flattened,
// deduplicated set of resources to install.
package resolver

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"aster/internal/cache"
	"aster/internal/source"
)

type Fetcher interface {
	Fetch(ctx context.Context, d source.Descriptor, req source.Request) (source.Resource, error)
}

type Cache interface {
	Get(key string) (*source.Resource, bool)
	Put(key, src string, res source.Resource) error
}

type Service struct {
	Sources Fetcher
	Cache   Cache
	Logger  logrus.FieldLogger
	// Refresh skips cache reads; fetched resources are still cached.
	Refresh bool
}

// Entry is one resolved node. Via is the input of the resource that first
// referenced it, empty for requested inputs.
type Entry struct {
	Input      string            `json:"input"`
	Key        string            `json:"key"`
	Descriptor source.Descriptor `json:"descriptor"`
	Resource   source.Resource   `json:"resource"`
	Via        string            `json:"via,omitempty"`
	Cached     bool              `json:"cached"`
}

// Warning records a node that could not be resolved.
type Warning struct {
	Input string `json:"input"`
	Key   string `json:"key"`
	Err   error  `json:"-"`
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Input, w.Err)
}

// ResolvedSet preserves first-resolution order.
type ResolvedSet struct {
	entries []Entry
	byInput map[string]int
	byKey   map[string]int
}

func NewSet() *ResolvedSet {
	return &ResolvedSet{byInput: map[string]int{}, byKey: map[string]int{}}
}

func (s *ResolvedSet) Add(e Entry) bool {
	if _, ok := s.byKey[e.Key]; ok {
		return false
	}
	s.byKey[e.Key] = len(s.entries)
	s.byInput[e.Input] = len(s.entries)
	s.entries = append(s.entries, e)
	return true
}

func (s *ResolvedSet) Entries() []Entry { return s.entries }

func (s *ResolvedSet) Len() int { return len(s.entries) }

func (s *ResolvedSet) Get(input string) (Entry, bool) {
	i, ok := s.byInput[input]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

func (s *ResolvedSet) Lookup(key string) (Entry, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Inputs lists entry inputs in resolution order.
func (s *ResolvedSet) Inputs() []string {
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Input)
	}
	return out
}

type queued struct {
	input string
	via   string
}

// ResolveAll walks registryDependencies breadth-first from inputs. A node
// that fails to resolve becomes a warning and the walk continues.
func (s *Service) ResolveAll(ctx context.Context, inputs []string, req source.Request) (*ResolvedSet, []Warning) {
	set := NewSet()
	visited := map[string]struct{}{}
	var warnings []Warning

	queue := make([]queued, 0, len(inputs))
	for _, in := range inputs {
		queue = append(queue, queued{input: in})
	}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.input == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			warnings = append(warnings, Warning{Input: item.input, Err: err})
			break
		}
		d := source.Parse(item.input)
		key := source.Key(d)
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		res, cached, err := s.load(ctx, d, key, req, &warnings)
		if err != nil {
			warnings = append(warnings, Warning{Input: item.input, Key: key, Err: err})
			s.logger().WithFields(logrus.Fields{"input": item.input, "source": key, "kind": d.Kind}).Warn(err.Error())
			continue
		}
		set.Add(Entry{Input: item.input, Key: key, Descriptor: d, Resource: res, Via: item.via, Cached: cached})
		for _, dep := range res.RegistryDependencies {
			if _, seen := visited[source.Key(source.Parse(dep))]; seen {
				continue
			}
			queue = append(queue, queued{input: dep, via: item.input})
		}
	}
	return set, warnings
}

func (s *Service) load(ctx context.Context, d source.Descriptor, key string, req source.Request, warnings *[]Warning) (source.Resource, bool, error) {
	cacheable := s.Cache != nil && d.Kind != source.KindLocal
	cacheKey := cache.KeyFor(req.Style, key)
	if cacheable && !s.Refresh {
		if res, ok := s.Cache.Get(cacheKey); ok {
			s.logger().WithField("source", key).Debug("cache hit")
			return *res, true, nil
		}
	}
	res, err := s.Sources.Fetch(ctx, d, req)
	if err != nil {
		return source.Resource{}, false, err
	}
	if cacheable {
		if err := s.Cache.Put(cacheKey, source.Format(d), res); err != nil {
			*warnings = append(*warnings, Warning{Input: source.Format(d), Key: key, Err: err})
			s.logger().WithField("source", key).Warn(err.Error())
		}
	}
	return res, false, nil
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		s.Logger = l
	}
	return s.Logger
}
