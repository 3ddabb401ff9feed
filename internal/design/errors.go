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

// ParseError is returned when text cannot be parsed into one of the enum-like
// types of this package (document type, DPI status, ...).
type ParseError struct {
	Type  string
	Value string
}

func (e *ParseError) Error() string {
	return "design: invalid " + e.Type + " value: " + e.Value
}
