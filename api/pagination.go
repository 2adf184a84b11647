// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 100
	orderAsc        = "asc"
	orderDesc       = "desc"
)

var ErrInvalidPagination = errors.New("invalid pagination parameters")

type Page struct {
	Count int
	Page  int
	Order string
}

// ParsePage reads count, page and order from the query string. Count and
// page are clamped into range.
func ParsePage(r *http.Request) (Page, error) {
	ret := Page{
		Count: DefaultPageSize,
		Page:  1,
		Order: orderAsc,
	}
	query := r.URL.Query()
	if v := query.Get("count"); v != "" {
		count, err := strconv.Atoi(v)
		if err != nil {
			return Page{}, ErrInvalidPagination
		}
		ret.Count = min(max(count, 1), MaxPageSize)
	}
	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return Page{}, ErrInvalidPagination
		}
		ret.Page = max(page, 1)
	}
	if v := query.Get("order"); v != "" {
		switch order := strings.ToLower(v); order {
		case orderAsc, orderDesc:
			ret.Order = order
		default:
			return Page{}, ErrInvalidPagination
		}
	}
	return ret, nil
}

// bounds returns the slice range of this page over total items
func (p Page) bounds(total int) (int, int) {
	if total <= 0 || p.Page-1 >= (total+p.Count-1)/p.Count {
		return total, total
	}
	start := (p.Page - 1) * p.Count
	return start, min(start+p.Count, total)
}

func setPageHeaders(w http.ResponseWriter, total int, p Page) {
	pages := 0
	if total > 0 {
		pages = (total + p.Count - 1) / p.Count
	}
	w.Header().Set("X-Pagination-Count-Total", strconv.Itoa(total))
	w.Header().Set("X-Pagination-Page-Total", strconv.Itoa(pages))
}
