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
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestPropsCloneIsDeep(t *testing.T) {
	p := Props{
		"left":   10.0,
		"shadow": map[string]any{"blur": 4.0, "color": "#000"},
		"path":   []any{[]any{"M", 0.0, 0.0}},
	}
	c := p.Clone()
	c["shadow"].(map[string]any)["blur"] = 99.0
	c["path"].([]any)[0].([]any)[1] = 5.0
	c["left"] = 11.0
	if p["shadow"].(map[string]any)["blur"] != 4.0 {
		t.Fatalf("nested map shared between clones")
	}
	if p["path"].([]any)[0].([]any)[1] != 0.0 {
		t.Fatalf("nested slice shared between clones")
	}
	if p["left"] != 10.0 {
		t.Fatalf("top-level value shared")
	}
}

func TestPropsMergeAndAccessors(t *testing.T) {
	p := Props{"left": 1.0, "fill": "red", "flipX": true}
	m := p.Merge(Props{"left": 5, "fill": nil, "top": "7.5"})
	if _, ok := m["fill"]; ok {
		t.Fatalf("nil patch value should delete key")
	}
	if m.Float("left", 0) != 5 || m.Float("top", 0) != 7.5 {
		t.Fatalf("merged numbers wrong: %v", m)
	}
	if p.Float("left", 0) != 1 || p.StringOr("fill", "") != "red" {
		t.Fatalf("Merge mutated receiver: %v", p)
	}
	if !m.Bool("flipX") || m.Bool("missing") || !m.BoolOr("missing", true) {
		t.Fatalf("bool accessors wrong")
	}
	if m.Float("fill", -1) != -1 {
		t.Fatalf("absent key should yield default")
	}
}

func TestObjectHelpers(t *testing.T) {
	o := CanvasObject{ID: "a", Type: TypeImage, Props: Props{"left": 10.0, "top": 20.0}}
	moved := o.Offset(DuplicateOffset, DuplicateOffset)
	if moved.Props.Float("left", 0) != 30 || moved.Props.Float("top", 0) != 40 {
		t.Fatalf("Offset: %v", moved.Props)
	}
	if o.Props.Float("left", 0) != 10 {
		t.Fatalf("Offset mutated source")
	}
	n := 0
	re := o.Reidentify(func() string { n++; return []string{"", "x", "y"}[n] })
	if re.ID != "x" || re.CustomID != "y" {
		t.Fatalf("Reidentify: %+v", re)
	}
	if o.Key() != "a" || re.Key() != "y" {
		t.Fatalf("Key should prefer customId")
	}
	border := CanvasObject{ID: PrintAreaBorderID, Type: TypeRect}
	hidden := CanvasObject{ID: "g", Type: TypeRect, Props: Props{PropExcludeFromExport: true}}
	l := ObjectList{o, border, hidden}
	if got := l.WithoutScaffolding(); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("WithoutScaffolding: %+v", got)
	}
}

func TestCanvasDataJSONShapes(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		surfaced  bool
		frontLen  int
		primaryID string
	}{
		{"flat", `[{"id":"a","type":"text","props":{"text":"hi"}}]`, false, 1, "a"},
		{"serialized canvas", `{"version":"5.3.0","objects":[{"id":"b","type":"rect"}]}`, false, 1, "b"},
		{"surfaces", `{"front":[{"id":"c","type":"rect"}],"back":[]}`, true, 1, "c"},
		{"wrapped surfaces", `{"front":{"objects":[{"id":"d","type":"rect"}]}}`, true, 1, "d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c CanvasData
			if err := json.Unmarshal([]byte(tc.in), &c); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if c.IsSurfaceKeyed() != tc.surfaced {
				t.Fatalf("IsSurfaceKeyed = %v", c.IsSurfaceKeyed())
			}
			l, _ := c.Objects(DefaultSurface)
			if len(l) != tc.frontLen {
				t.Fatalf("front len = %d", len(l))
			}
			if p := c.Primary(""); len(p) == 0 || p[0].ID != tc.primaryID {
				t.Fatalf("Primary = %+v", p)
			}
		})
	}
}

func TestCanvasDataMarshalRoundTrip(t *testing.T) {
	c := SurfaceCanvas(map[string]ObjectList{"front": nil})
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"front":[]}` {
		t.Fatalf("nil surface should marshal as empty list, got %s", b)
	}
	b, _ = json.Marshal(FlatCanvas(nil))
	if string(b) != `[]` {
		t.Fatalf("empty flat canvas = %s", b)
	}
}

func TestPrimaryFallsBackToFirstSurface(t *testing.T) {
	c := SurfaceCanvas(map[string]ObjectList{
		"sleeve": {{ID: "s"}},
		"back":   {{ID: "b"}},
	})
	if got := c.Primary("missing"); got[0].ID != "b" {
		t.Fatalf("expected first surface by name, got %+v", got)
	}
	if got := c.Primary("sleeve"); got[0].ID != "s" {
		t.Fatalf("preferred surface ignored")
	}
}

func TestParseEnums(t *testing.T) {
	if d, err := ParseDocType("product"); err != nil || d != DocProduct {
		t.Fatalf("ParseDocType: %v %v", d, err)
	}
	_, err := ParseDocType("poster")
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Type != "DocType" || pe.Value != "poster" {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if s, err := ParseDpiStatus(" Poor "); err != nil || s != DpiPoor {
		t.Fatalf("ParseDpiStatus: %v %v", s, err)
	}
}

func TestDocumentConformsToSchema(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := DesignDocument{
		ID:         "d1",
		Name:       "Tee",
		Type:       DocProduct,
		CreatedAt:  &now,
		UpdatedAt:  now,
		CanvasData: SurfaceCanvas(map[string]ObjectList{"front": {{ID: "a", Type: TypeText, Props: Props{"text": "hi"}}}}),
		CanvasViewStates: map[string]ObjectList{
			"front": {{ID: "a", Type: TypeText, Props: Props{"text": "hi"}}},
		},
		ProductConfig: &ProductConfig{ProductID: "tee-01", ActiveSurface: "front", PrintAreas: map[string]Size{"front": {Width: 4500, Height: 5400}}},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateJSON(data); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}

	var back DesignDocument
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back.CanvasData.Surfaces["front"][0].Props, Props{"text": "hi"}) {
		t.Fatalf("round trip lost props: %+v", back.CanvasData)
	}
}

func TestSchemaRejectsProductWithoutBinding(t *testing.T) {
	data := []byte(`{"name":"x","type":"PRODUCT","updatedAt":"2025-03-01T12:00:00Z","canvasData":{"front":[]}}`)
	err := ValidateJSON(data)
	var se *SchemaError
	if !errors.As(err, &se) || len(se.Violations) == 0 {
		t.Fatalf("expected schema violation, got %v", err)
	}
}
