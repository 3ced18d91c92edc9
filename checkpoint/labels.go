// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"strconv"
)

// Labels is a static id→label table, typically built from a checkpoint's
// config.json id2label entry. Lookups are pure: the same id always maps to the
// same string, and ids outside the table get a stable generated name.
type Labels struct {
	names map[int]string
}

// LabelsFromMap builds a label table from config.json-style string-keyed
// entries. Keys that don't parse as integers are skipped.
func LabelsFromMap(id2label map[string]string) Labels {
	names := make(map[int]string, len(id2label))
	for key, name := range id2label {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		names[id] = name
	}
	return Labels{names: names}
}

// Name returns the label for id, or "LABEL_<id>" when the table has no entry.
func (l Labels) Name(id int) string {
	if name, ok := l.names[id]; ok {
		return name
	}
	return "LABEL_" + strconv.Itoa(id)
}

// Len returns the number of entries in the table.
func (l Labels) Len() int { return len(l.names) }
