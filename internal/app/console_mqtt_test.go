// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import "testing"

func TestConsoleLine(t *testing.T) {
	cases := []struct {
		topic   string
		payload string
		want    string
	}{
		{"freelen/2/action", `{"deviceId":"2","from":"collection","to":"attack","state":"fighting"}`,
			"[ACT  2] collection -> attack     (fighting)"},
		{"freelen/1/match", `{"deviceId":"1","from":"ready","to":"fighting"}`,
			"[MATCH 1] ready -> fighting"},
		{"freelen/3/match", `{"deviceId":"3","from":"fighting","to":"fighting","reply":"attack"}`,
			"[SRV  3] attack"},
	}
	for _, tc := range cases {
		got, err := consoleLine(tc.topic, []byte(tc.payload))
		if err != nil {
			t.Fatalf("%s: %v", tc.topic, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.topic, got, tc.want)
		}
	}

	if _, err := consoleLine("freelen/2/pose", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := consoleLine("freelen/2/action", []byte(`not json`)); err == nil {
		t.Error("expected error for bad payload")
	}
}
