/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package design

import (
	"encoding/json"
	"math"
	"strconv"
)

// Props is the open-ended attribute set of a CanvasObject.
// Values follow JSON decoding: numbers are float64, nested values are map[string]any or []any.
type Props map[string]any

// Clone returns a deep copy of p.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case Props:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	case []float64:
		return append([]float64(nil), t...)
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Merge returns a copy of p with patch applied key by key. A nil patch value deletes the key.
func (p Props) Merge(patch Props) Props {
	out := p.Clone()
	if out == nil {
		out = Props{}
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// Float reads a numeric prop, returning def when absent or not a finite number.
func (p Props) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return def
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return def
		}
		f = n
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// String reads a string prop.
func (p Props) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// StringOr reads a string prop with a default.
func (p Props) StringOr(key, def string) string {
	if s, ok := p.String(key); ok {
		return s
	}
	return def
}

// Bool reads a boolean prop; anything but true is false.
func (p Props) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// BoolOr reads a boolean prop with a default for absent or non-bool values.
func (p Props) BoolOr(key string, def bool) bool {
	if b, ok := p[key].(bool); ok {
		return b
	}
	return def
}
