package user

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	domain "json-user-service/internal/domain/user"
)

// filterUsers keeps users whose name, email or address contains term,
// ignoring case. An empty term keeps everyone.
func filterUsers(users []domain.User, term string) []domain.User {
	if term == "" {
		return users
	}

	needle := strings.ToLower(term)
	out := users[:0:0]
	for _, u := range users {
		for _, s := range u.Searchable() {
			if strings.Contains(strings.ToLower(s), needle) {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// sortUsers orders users in place by field. Numeric values compare
// numerically, anything else by the collation rules of tag. A pair where
// either side lacks the field compares equal; the sort is stable so such
// records keep their relative order.
func sortUsers(users []domain.User, field domain.Field, desc bool, tag language.Tag) {
	col := collate.New(tag)

	slices.SortStableFunc(users, func(a, b domain.User) int {
		c := compareField(a, b, field, col)
		if desc {
			return -c
		}
		return c
	})
}

func compareField(a, b domain.User, field domain.Field, col *collate.Collator) int {
	av, aok := a.Get(field)
	bv, bok := b.Get(field)
	if !aok || !bok {
		return 0
	}

	an, aNum := av.(int64)
	bn, bNum := bv.(int64)
	if aNum && bNum {
		return cmp.Compare(an, bn)
	}

	return col.CompareString(domain.String(av), domain.String(bv))
}

// paginate slices users to the window described by p.
func paginate(users []domain.User, p *domain.Pagination) []domain.User {
	return users[p.Start:p.End]
}
