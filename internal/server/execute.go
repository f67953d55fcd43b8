package server

import (
	"github.com/airsql/airsql/internal/query"
	"github.com/airsql/airsql/internal/registry"
)

// Execute parses one statement, resolves its source table through the
// registry and dispatches to the executor.
func Execute(reg *registry.Registry, text string) (string, error) {
	q, err := query.Parse(text)
	if err != nil {
		return "", err
	}

	switch q.Verb {
	case query.VerbSave:
		identifier, err := reg.Persist("")
		if err != nil {
			return "", err
		}
		return identifier + " saved.\n", nil
	case query.VerbInsert:
		return "", query.Insert()
	case query.VerbDelete:
		return "", query.Delete()
	}

	t, err := reg.Resolve(q.Source)
	if err != nil {
		return "", err
	}
	if q.Verb == query.VerbSelect {
		return query.Select(t, q)
	}
	return query.Update(t, q)
}
