// Copyright 2025 The Authors (see AUTHORS file)
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

package checkrequest

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func validRequest() *CheckRequest {
	return &CheckRequest{
		EventName:      EventPullRequest,
		Action:         "opened",
		InstallationID: 42,
		Sender:         Sender{Login: "octocat", ID: 1},
		Repository: Repository{
			ID:            123,
			Owner:         "acme",
			Name:          "widgets",
			DefaultBranch: "main",
			FullName:      "acme/widgets",
			CustomProperties: map[string]string{
				"team": "platform",
			},
		},
		Head: Head{
			SHA:     "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			Ref:     "feature-branch",
			RefType: RefTypeBranch,
		},
		Base: &Base{
			SHA: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			Ref: "main",
		},
		PullRequest: &PullRequest{
			Number:  7,
			Title:   "Add widgets",
			HTMLURL: "https://github.com/acme/widgets/pull/7",
			User:    PullRequestUser{Login: "octocat"},
		},
		ReceivedAt: time.Date(2026, 7, 31, 12, 0, 0, 123000000, time.UTC),
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	want := validRequest()
	b, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"event_name":"pull_request","action":"opened","installation_id":1,
		"repository":{"owner":"a","name":"b","full_name":"a/b"},
		"head":{"sha":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		"received_at":"2026-07-31T12:00:00Z","unknown_field":"ignored"}`)

	cr, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cr.Repository.FullName != "a/b" {
		t.Errorf("FullName = %q, want a/b", cr.Repository.FullName)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*CheckRequest)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(*CheckRequest) {},
		},
		{
			name: "bad event name",
			mutate: func(cr *CheckRequest) {
				cr.EventName = "push"
			},
			wantErr: true,
		},
		{
			name: "zero installation id",
			mutate: func(cr *CheckRequest) {
				cr.InstallationID = 0
			},
			wantErr: true,
		},
		{
			name: "short sha",
			mutate: func(cr *CheckRequest) {
				cr.Head.SHA = "abc123"
			},
			wantErr: true,
		},
		{
			name: "mismatched full name",
			mutate: func(cr *CheckRequest) {
				cr.Repository.FullName = "other/name"
			},
			wantErr: true,
		},
		{
			name: "invalid custom property key",
			mutate: func(cr *CheckRequest) {
				cr.Repository.CustomProperties["9bad-key"] = "x"
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cr := validRequest()
			tc.mutate(cr)
			err := cr.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSanitizeCustomProperties(t *testing.T) {
	t.Parallel()

	in := map[string]string{
		"team":        "platform",
		"9bad":        "dropped",
		"bad-key":     "dropped",
		"_valid_too":  "kept",
		"":            "dropped",
	}

	got := SanitizeCustomProperties(in)
	want := map[string]string{
		"team":       "platform",
		"_valid_too": "kept",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SanitizeCustomProperties mismatch (-want +got):\n%s", diff)
	}
}
