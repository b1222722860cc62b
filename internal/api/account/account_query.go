package account

import (
	"fmt"
	"strings"
	"time"

	"github.com/nepabhay/account-service/internal/types"
)

// AccountQuery is a typed filter builder for account listings. Each predicate
// is named after what it selects, replacing ad-hoc key/value filter maps with
// something the compiler can check.
type AccountQuery struct {
	conds []condition
	limit int
}

type condition struct {
	clause string
	args   []any
}

func NewAccountQuery() AccountQuery {
	return AccountQuery{}
}

// ByDeletionCutoff selects accounts whose deletion request is old enough to
// purge: deletion_requested_at set and at or before the cutoff.
func (q AccountQuery) ByDeletionCutoff(cutoff time.Time) AccountQuery {
	q.conds = append(q.conds, condition{
		clause: "deletion_requested_at IS NOT NULL AND deletion_requested_at <= %s",
		args:   []any{cutoff},
	})
	return q
}

// ByDeletionPending selects accounts with (or without) an open deletion request.
func (q AccountQuery) ByDeletionPending(pending bool) AccountQuery {
	if pending {
		q.conds = append(q.conds, condition{clause: "deletion_requested_at IS NOT NULL"})
	} else {
		q.conds = append(q.conds, condition{clause: "deletion_requested_at IS NULL"})
	}
	return q
}

func (q AccountQuery) ByBlocked(blocked bool) AccountQuery {
	q.conds = append(q.conds, condition{clause: "is_blocked = %s", args: []any{blocked}})
	return q
}

func (q AccountQuery) ByActive(active bool) AccountQuery {
	q.conds = append(q.conds, condition{clause: "is_active = %s", args: []any{active}})
	return q
}

func (q AccountQuery) ByRole(role types.Role) AccountQuery {
	q.conds = append(q.conds, condition{clause: "role = %s", args: []any{string(role)}})
	return q
}

// Limit caps the number of rows returned; zero means no cap.
func (q AccountQuery) Limit(n int) AccountQuery {
	q.limit = n
	return q
}

// Build renders the WHERE clause (possibly empty) with positional
// placeholders starting at $1, plus the matching argument slice.
func (q AccountQuery) Build() (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(q.conds)+1)

	for i, c := range q.conds {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		placeholders := make([]any, len(c.args))
		for j := range c.args {
			args = append(args, c.args[j])
			placeholders[j] = fmt.Sprintf("$%d", len(args))
		}
		sb.WriteString(fmt.Sprintf(c.clause, placeholders...))
	}

	sb.WriteString(" ORDER BY created_at ASC")
	if q.limit > 0 {
		args = append(args, q.limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	return sb.String(), args
}
