/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type pathOp struct {
	cmd  byte
	args []float64
}

var pathArity = map[byte]int{'M': 2, 'L': 2, 'H': 1, 'V': 1, 'C': 6, 'S': 4, 'Q': 4, 'T': 2, 'Z': 0}

// parsePath accepts SVG path data either as a string or as the array-of-arrays
// form ([["M",0,0],["L",10,10]]) and returns absolute M/L/C/Q/Z operations.
func parsePath(v any) ([]pathOp, error) {
	var raw []pathOp
	var err error
	switch t := v.(type) {
	case string:
		raw, err = tokenizePath(t)
	case []any:
		raw, err = pathFromArray(t)
	default:
		return nil, fmt.Errorf("unsupported path value %T", v)
	}
	if err != nil {
		return nil, err
	}
	return absolutize(raw)
}

func tokenizePath(s string) ([]pathOp, error) {
	var ops []pathOp
	i := 0
	var cur *pathOp
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			i++
		case unicode.IsLetter(rune(c)):
			if _, ok := pathArity[byte(unicode.ToUpper(rune(c)))]; !ok {
				return nil, fmt.Errorf("unsupported path command %q", c)
			}
			ops = append(ops, pathOp{cmd: c})
			cur = &ops[len(ops)-1]
			i++
		default:
			if cur == nil {
				return nil, fmt.Errorf("path data must start with a command")
			}
			j := i + 1
			for j < len(s) {
				d := s[j]
				if (d >= '0' && d <= '9') || d == '.' || ((d == '-' || d == '+') && (s[j-1] == 'e' || s[j-1] == 'E')) || d == 'e' || d == 'E' {
					j++
					continue
				}
				break
			}
			f, err := strconv.ParseFloat(s[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad path number %q", s[i:j])
			}
			cur.args = append(cur.args, f)
			i = j
		}
	}
	return splitRepeats(ops)
}

func pathFromArray(a []any) ([]pathOp, error) {
	ops := make([]pathOp, 0, len(a))
	for _, item := range a {
		seg, ok := item.([]any)
		if !ok || len(seg) == 0 {
			return nil, fmt.Errorf("bad path segment %v", item)
		}
		name, ok := seg[0].(string)
		if !ok || len(name) != 1 {
			return nil, fmt.Errorf("bad path command %v", seg[0])
		}
		op := pathOp{cmd: name[0]}
		for _, n := range seg[1:] {
			f, ok := n.(float64)
			if !ok {
				return nil, fmt.Errorf("bad path argument %v", n)
			}
			op.args = append(op.args, f)
		}
		ops = append(ops, op)
	}
	return splitRepeats(ops)
}

// splitRepeats expands implicit repeated commands ("L 1 2 3 4") into one op per argument group.
func splitRepeats(ops []pathOp) ([]pathOp, error) {
	var out []pathOp
	for _, op := range ops {
		upper := byte(unicode.ToUpper(rune(op.cmd)))
		n, ok := pathArity[upper]
		if !ok {
			return nil, fmt.Errorf("unsupported path command %q", op.cmd)
		}
		if n == 0 {
			out = append(out, pathOp{cmd: op.cmd})
			continue
		}
		if len(op.args) == 0 || len(op.args)%n != 0 {
			return nil, fmt.Errorf("path command %q has %d arguments", op.cmd, len(op.args))
		}
		for k := 0; k < len(op.args); k += n {
			cmd := op.cmd
			if k > 0 && upper == 'M' {
				cmd-- // M -> L, m -> l
			}
			out = append(out, pathOp{cmd: cmd, args: op.args[k : k+n]})
		}
	}
	return out, nil
}

func absolutize(ops []pathOp) ([]pathOp, error) {
	out := make([]pathOp, 0, len(ops))
	var x, y, sx, sy float64
	var lastCtrl [2]float64
	var lastCmd byte
	for _, op := range ops {
		rel := op.cmd >= 'a' && op.cmd <= 'z'
		a := append([]float64(nil), op.args...)
		dx, dy := 0.0, 0.0
		if rel {
			dx, dy = x, y
		}
		switch byte(unicode.ToUpper(rune(op.cmd))) {
		case 'M':
			x, y = a[0]+dx, a[1]+dy
			sx, sy = x, y
			out = append(out, pathOp{cmd: 'M', args: []float64{x, y}})
		case 'L':
			x, y = a[0]+dx, a[1]+dy
			out = append(out, pathOp{cmd: 'L', args: []float64{x, y}})
		case 'H':
			x = a[0] + dx
			out = append(out, pathOp{cmd: 'L', args: []float64{x, y}})
		case 'V':
			if rel {
				y += a[0]
			} else {
				y = a[0]
			}
			out = append(out, pathOp{cmd: 'L', args: []float64{x, y}})
		case 'C':
			c := []float64{a[0] + dx, a[1] + dy, a[2] + dx, a[3] + dy, a[4] + dx, a[5] + dy}
			lastCtrl = [2]float64{c[2], c[3]}
			x, y = c[4], c[5]
			out = append(out, pathOp{cmd: 'C', args: c})
		case 'S':
			c1x, c1y := x, y
			if lastCmd == 'C' {
				c1x, c1y = 2*x-lastCtrl[0], 2*y-lastCtrl[1]
			}
			c := []float64{c1x, c1y, a[0] + dx, a[1] + dy, a[2] + dx, a[3] + dy}
			lastCtrl = [2]float64{c[2], c[3]}
			x, y = c[4], c[5]
			out = append(out, pathOp{cmd: 'C', args: c})
		case 'Q':
			c := []float64{a[0] + dx, a[1] + dy, a[2] + dx, a[3] + dy}
			lastCtrl = [2]float64{c[0], c[1]}
			x, y = c[2], c[3]
			out = append(out, pathOp{cmd: 'Q', args: c})
		case 'T':
			cx, cy := x, y
			if lastCmd == 'Q' {
				cx, cy = 2*x-lastCtrl[0], 2*y-lastCtrl[1]
			}
			lastCtrl = [2]float64{cx, cy}
			x, y = a[0]+dx, a[1]+dy
			out = append(out, pathOp{cmd: 'Q', args: []float64{cx, cy, x, y}})
		case 'Z':
			x, y = sx, sy
			out = append(out, pathOp{cmd: 'Z'})
		}
		lastCmd = out[len(out)-1].cmd
	}
	return out, nil
}

// pathBounds returns the bounding box of all points including control points.
func pathBounds(ops []pathOp) (minX, minY, maxX, maxY float64) {
	first := true
	for _, op := range ops {
		for i := 0; i+1 < len(op.args); i += 2 {
			px, py := op.args[i], op.args[i+1]
			if first {
				minX, maxX, minY, maxY = px, px, py, py
				first = false
				continue
			}
			minX, maxX = min(minX, px), max(maxX, px)
			minY, maxY = min(minY, py), max(maxY, py)
		}
	}
	return minX, minY, maxX, maxY
}

func pathString(ops []pathOp) string {
	var b strings.Builder
	for i, op := range ops {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(op.cmd)
		for _, a := range op.args {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatFloat(a, 'f', -1, 64))
		}
	}
	return b.String()
}
