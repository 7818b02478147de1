package p2

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/agustinschilling/equo-ide/internal/equoerr"
	"github.com/agustinschilling/equo-ide/internal/filter"
	"github.com/agustinschilling/equo-ide/internal/unit"
)

// Source is what a query needs from a prepared model.
type Source interface {
	Installs() []unit.Requirement
	Repositories() []string
	Filter() *filter.Filter
}

// QueryResult holds the outcome of expanding a model's installs.
type QueryResult struct {
	// Units are the kept units in discovery order, without duplicate ids.
	Units []unit.Unit
	// Excluded are units reached during expansion but dropped by the filter.
	Excluded []unit.Unit
}

// Jars returns the kept units that contribute a file to the classpath.
func (r *QueryResult) Jars() []unit.Unit {
	var out []unit.Unit
	for _, u := range r.Units {
		if u.IsJar() {
			out = append(out, u)
		}
	}
	return out
}

// Find returns the kept unit with id.
func (r *QueryResult) Find(id string) (unit.Unit, bool) {
	for _, u := range r.Units {
		if u.ID == id {
			return u, true
		}
	}
	return unit.Unit{}, false
}

// catalogue maps unit ids to their candidates, repository by repository in
// declaration order.
type catalogue struct {
	repos []string
	byID  map[string][][]unit.Unit
}

func load(ctx context.Context, idx Index, repos []string) (*catalogue, error) {
	c := &catalogue{repos: repos, byID: map[string][][]unit.Unit{}}
	for i, repo := range repos {
		units, err := idx.Units(ctx, repo)
		if err != nil {
			return nil, err
		}
		for _, u := range units {
			slots := c.byID[u.ID]
			if slots == nil {
				slots = make([][]unit.Unit, len(repos))
				c.byID[u.ID] = slots
			}
			slots[i] = append(slots[i], u)
		}
	}
	return c, nil
}

// pick returns the highest version of r.ID that r allows, from the first
// repository that has any acceptable candidate.
func (c *catalogue) pick(r unit.Requirement) (unit.Unit, bool, bool) {
	slots, known := c.byID[r.ID]
	if !known {
		return unit.Unit{}, false, false
	}
	for _, candidates := range slots {
		var allowed []unit.Unit
		for _, u := range candidates {
			if r.Allows(u.Version) {
				allowed = append(allowed, u)
			}
		}
		if len(allowed) == 0 {
			continue
		}
		sort.SliceStable(allowed, func(i, j int) bool { return newer(allowed[i].Version, allowed[j].Version) })
		return allowed[0], true, true
	}
	return unit.Unit{}, true, false
}

func newer(a, b string) bool {
	va, errA := unit.ParseVersion(a)
	vb, errB := unit.ParseVersion(b)
	if errA != nil || errB != nil {
		return a > b
	}
	return va.Compare(vb) > 0
}

// Query expands the model's installs and everything they require, first
// repository wins, and applies the model's filter. A declared install that
// no repository provides is a ResolutionError naming it.
func Query(ctx context.Context, idx Index, src Source) (*QueryResult, error) {
	cat, err := load(ctx, idx, src.Repositories())
	if err != nil {
		return nil, err
	}
	f := src.Filter()

	res := &QueryResult{}
	seen := map[string]bool{}
	type pending struct {
		req  unit.Requirement
		from string
	}
	queue := make([]pending, 0, len(src.Installs()))
	for _, r := range src.Installs() {
		queue = append(queue, pending{req: r})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := queue[0]
		queue = queue[1:]
		if seen[p.req.ID] {
			continue
		}
		if f.Excludes(p.req.ID) {
			seen[p.req.ID] = true
			res.Excluded = append(res.Excluded, unit.Unit{ID: p.req.ID})
			continue
		}

		u, known, ok := cat.pick(p.req)
		if !ok {
			return nil, equoerr.Resolution(equoerr.StageQuery, p.req.String(), missing(p.req, p.from, known, len(cat.repos)))
		}
		seen[p.req.ID] = true
		if !f.Accepts(u) {
			res.Excluded = append(res.Excluded, u)
			continue
		}
		res.Units = append(res.Units, u)

		for _, dep := range u.Requires {
			r, err := unit.ParseRequirement(dep)
			if err != nil {
				return nil, equoerr.Resolution(equoerr.StageQuery, u.ID, err)
			}
			queue = append(queue, pending{req: r, from: u.ID})
		}
	}
	return res, nil
}

func missing(r unit.Requirement, from string, known bool, repos int) error {
	var msg string
	switch {
	case known:
		msg = fmt.Sprintf("no version satisfies %q", r.Constraint)
	case repos == 0:
		msg = "no p2 repositories declared"
	default:
		msg = fmt.Sprintf("not found in any of %d repositories", repos)
	}
	if from != "" {
		msg += " (required by " + from + ")"
	}
	return errors.New(msg)
}

// All lists every unit the repositories publish, first repository wins,
// sorted by id.
func All(ctx context.Context, idx Index, repos []string) ([]unit.Unit, error) {
	cat, err := load(ctx, idx, repos)
	if err != nil {
		return nil, err
	}
	out := make([]unit.Unit, 0, len(cat.byID))
	for id := range cat.byID {
		if u, _, ok := cat.pick(unit.Requirement{ID: id}); ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
