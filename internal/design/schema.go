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
	_ "embed"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed schema/design_document.schema.json
var documentSchema []byte

// DocumentSchema returns the JSON schema persisted design documents conform to.
func DocumentSchema() []byte { return append([]byte(nil), documentSchema...) }

// SchemaError lists the violations found by ValidateJSON.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("design: document violates schema: %s", strings.Join(e.Violations, "; "))
}

// ValidateJSON checks a serialized design document against the embedded schema.
// It returns a *SchemaError when the document is well-formed JSON but does not conform.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(documentSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("design: validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	se := &SchemaError{}
	for _, e := range result.Errors() {
		se.Violations = append(se.Violations, e.String())
	}
	return se
}
