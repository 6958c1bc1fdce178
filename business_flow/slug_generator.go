package businessflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/amirphl/Susanoo/repository"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/sirupsen/logrus"
)

const (
	SlugAlphabet        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	MinSlugLength       = 2
	MaxSlugLength       = 5
	MaxRetriesPerLength = 20
	MaxCustomSlugLength = 64
)

var customSlugPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// defaultReservedSlugs are first path segments owned by fixed routes.
var defaultReservedSlugs = []string{"api", "r"}

// SlugGenerator produces unused short codes and validates user supplied ones.
type SlugGenerator interface {
	Generate(ctx context.Context) (string, error)
	ValidateCustom(ctx context.Context, slug string) error
}

// SlugSource draws a random code of the given length over SlugAlphabet.
type SlugSource func(length int) string

// SlugExistenceChecker is the lookup the generator needs from link storage.
type SlugExistenceChecker interface {
	ShortCodeExists(ctx context.Context, code string) (bool, error)
}

type SlugGeneratorImpl struct {
	links    SlugExistenceChecker
	state    repository.SlugStateRepository
	source   SlugSource
	reserved map[string]struct{}
	// floor is the lowest length this process still draws at. It keeps
	// saturated lengths skipped even when persisting the raise failed.
	floor atomic.Int32
}

// NewSlugGenerator builds a generator backed by one nanoid generator per length.
// reservedPaths are routes mounted beside the short code catch-all; codes
// matching their first segment are never handed out.
func NewSlugGenerator(links SlugExistenceChecker, state repository.SlugStateRepository, reservedPaths ...string) (SlugGenerator, error) {
	gens := make(map[int]func() string, MaxSlugLength-MinSlugLength+1)
	for l := MinSlugLength; l <= MaxSlugLength; l++ {
		g, err := nanoid.CustomASCII(SlugAlphabet, l)
		if err != nil {
			return nil, fmt.Errorf("failed to build slug generator for length %d: %w", l, err)
		}
		gens[l] = g
	}
	return NewSlugGeneratorWithSource(links, state, func(length int) string {
		return gens[length]()
	}, reservedPaths...), nil
}

func NewSlugGeneratorWithSource(links SlugExistenceChecker, state repository.SlugStateRepository, source SlugSource, reservedPaths ...string) SlugGenerator {
	g := &SlugGeneratorImpl{
		links:    links,
		state:    state,
		source:   source,
		reserved: make(map[string]struct{}, len(defaultReservedSlugs)+len(reservedPaths)),
	}
	for _, p := range append(append([]string{}, defaultReservedSlugs...), reservedPaths...) {
		if seg := firstSegment(p); seg != "" {
			g.reserved[seg] = struct{}{}
		}
	}
	return g
}

// firstSegment lowercases the first path segment; routes match case-insensitively.
func firstSegment(path string) string {
	seg, _, _ := strings.Cut(strings.TrimLeft(path, "/"), "/")
	return strings.ToLower(seg)
}

func (g *SlugGeneratorImpl) isReserved(code string) bool {
	_, ok := g.reserved[strings.ToLower(code)]
	return ok
}

func (g *SlugGeneratorImpl) raiseFloor(length int) {
	for {
		cur := g.floor.Load()
		if int32(length) <= cur || g.floor.CompareAndSwap(cur, int32(length)) {
			return
		}
	}
}

// Generate draws codes starting at the persisted minimum length. After
// MaxRetriesPerLength collisions at a length it raises the persisted minimum
// and moves on, so later calls skip saturated lengths.
func (g *SlugGeneratorImpl) Generate(ctx context.Context) (string, error) {
	current, err := g.state.CurrentLength(ctx, MinSlugLength)
	if err != nil {
		return "", NewBusinessError("SLUG_STATE_READ_FAILED", "Failed to read slug generation state", err)
	}
	if floor := int(g.floor.Load()); current < floor {
		current = floor
	}
	if current < MinSlugLength {
		current = MinSlugLength
	}

	for length := current; length <= MaxSlugLength; length++ {
		if length > current {
			g.raiseFloor(length)
			slugLengthEscalations.Inc()
			if err := g.state.RaiseLength(ctx, length); err != nil {
				logrus.WithError(err).WithField("length", length).Error("failed to persist slug generation length")
			} else {
				logrus.WithField("length", length).Info("slug generation length raised")
			}
		}

		for attempt := 0; attempt < MaxRetriesPerLength; attempt++ {
			code := g.source(length)
			if g.isReserved(code) {
				continue
			}
			exists, err := g.links.ShortCodeExists(ctx, code)
			if err != nil {
				return "", NewBusinessError("SLUG_LOOKUP_FAILED", "Failed to check short code availability", err)
			}
			if !exists {
				return code, nil
			}
		}
	}

	return "", ErrCodeSpaceExhausted
}

func (g *SlugGeneratorImpl) ValidateCustom(ctx context.Context, slug string) error {
	if len(slug) > MaxCustomSlugLength {
		return ErrCustomSlugTooLong
	}
	if !customSlugPattern.MatchString(slug) {
		return ErrInvalidCustomSlug
	}
	if g.isReserved(slug) {
		return ErrReservedSlug
	}
	exists, err := g.links.ShortCodeExists(ctx, slug)
	if err != nil {
		return NewBusinessError("SLUG_LOOKUP_FAILED", "Failed to check short code availability", err)
	}
	if exists {
		return ErrDuplicateSlug
	}
	return nil
}
