/*
 * Copyright 2018 The Trickster Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package docstore

import (
	"cmp"
	"reflect"
	"slices"
)

// Filter matches documents whose Field equals Value
type Filter struct {
	Field string
	Value any
}

// Order sorts results by Field
type Order struct {
	Field string
	Desc  bool
}

// Query selects documents from one collection
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    []Order
	// Limit caps the result count; zero means no limit
	Limit int
}

// Where returns a copy of q with an equality filter added
func (q Query) Where(field string, v any) Query {
	q.Filters = append(slices.Clone(q.Filters), Filter{Field: field, Value: v})
	return q
}

// Order returns a copy of q with a sort key added
func (q Query) Order(field string, desc bool) Query {
	q.OrderBy = append(slices.Clone(q.OrderBy), Order{Field: field, Desc: desc})
	return q
}

// WithLimit returns a copy of q with the limit set
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Matches returns true when d passes every filter
func (q Query) Matches(d Document) bool {
	for _, f := range q.Filters {
		want, err := normalizeValue(f.Value)
		if err != nil {
			return false
		}
		got := d.Fields[f.Field]
		if f.Field == "id" && got == nil {
			got = d.ID
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Run filters, sorts and limits docs. Ties are broken by document id. docs
// is not modified.
func (q Query) Run(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b Document) int {
		for _, o := range q.OrderBy {
			c := compareValues(a.Fields[o.Field], b.Fields[o.Field])
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// typeRank orders values of different types: missing, bool, number, string,
// then anything else
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	}
	return 4
}

func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case float64:
		return cmp.Compare(x, b.(float64))
	case string:
		return cmp.Compare(x, b.(string))
	}
	return 0
}
