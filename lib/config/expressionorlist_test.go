package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestExpressionOrListMarshalJSON(t *testing.T) {
	for _, tt := range []struct {
		name   string
		input  *ExpressionOrList
		output []byte
	}{
		{
			name:   "single expression",
			input:  &ExpressionOrList{Expression: `method == "POST"`},
			output: []byte(`"method == \"POST\""`),
		},
		{
			name:   "all",
			input:  &ExpressionOrList{All: []string{"true", "true"}},
			output: []byte(`{"all":["true","true"]}`),
		},
		{
			name:   "all one",
			input:  &ExpressionOrList{All: []string{"true"}},
			output: []byte(`"true"`),
		},
		{
			name:   "any",
			input:  &ExpressionOrList{Any: []string{"true", "false"}},
			output: []byte(`{"any":["true","false"]}`),
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			result, err := json.Marshal(tt.input)
			if err != nil {
				t.Fatal(err)
			}

			if !bytes.Equal(result, tt.output) {
				t.Logf("wanted: %s", string(tt.output))
				t.Logf("got:    %s", string(result))
				t.Error("mismatched output")
			}
		})
	}
}

func TestExpressionOrListUnmarshalJSON(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input string
		want  ExpressionOrList
		err   error
	}{
		{
			name:  "string",
			input: `"true"`,
			want:  ExpressionOrList{Expression: "true"},
		},
		{
			name:  "all",
			input: `{"all": ["a", "b"]}`,
			want:  ExpressionOrList{All: []string{"a", "b"}},
		},
		{
			name:  "any",
			input: `{"any": ["a"]}`,
			want:  ExpressionOrList{Any: []string{"a"}},
		},
		{
			name:  "number",
			input: `42`,
			err:   ErrExpressionOrListMustBeStringOrObject,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var got ExpressionOrList
			err := json.Unmarshal([]byte(tt.input), &got)
			if !errors.Is(err, tt.err) {
				t.Fatalf("wanted error %v, got: %v", tt.err, err)
			}

			if tt.err == nil && !got.Equal(&tt.want) {
				t.Errorf("wanted %+v, got: %+v", tt.want, got)
			}
		})
	}
}

func TestExpressionOrListValid(t *testing.T) {
	for _, tt := range []struct {
		name    string
		input   ExpressionOrList
		err     error
		wantErr bool
	}{
		{
			name:  "expression",
			input: ExpressionOrList{Expression: `method == "POST"`},
		},
		{
			name:    "both lists",
			input:   ExpressionOrList{All: []string{"true"}, Any: []string{"true"}},
			err:     ErrExpressionCantHaveBoth,
			wantErr: true,
		},
		{
			name:    "empty",
			err:     ErrExpressionEmpty,
			wantErr: true,
		},
		{
			name:    "does not compile",
			input:   ExpressionOrList{Expression: "method =="},
			wantErr: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Valid()
			if (err != nil) != tt.wantErr {
				t.Fatalf("wanted error: %v, got: %v", tt.wantErr, err)
			}

			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("wanted error %v, got: %v", tt.err, err)
			}
		})
	}
}

func TestExpressionOrListChecker(t *testing.T) {
	for _, tt := range []struct {
		name   string
		input  ExpressionOrList
		method string
		want   bool
	}{
		{
			name:   "all matches",
			input:  ExpressionOrList{All: []string{`method == "POST"`, `path.startsWith("/signup")`}},
			method: "POST",
			want:   true,
		},
		{
			name:   "all misses",
			input:  ExpressionOrList{All: []string{`method == "GET"`, `path.startsWith("/signup")`}},
			method: "POST",
			want:   false,
		},
		{
			name:   "any matches",
			input:  ExpressionOrList{Any: []string{`method == "GET"`, `path.startsWith("/signup")`}},
			method: "POST",
			want:   true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			chk, err := tt.input.Checker()
			if err != nil {
				t.Fatal(err)
			}

			got, err := chk.Check(httptest.NewRequest(tt.method, "/signup", nil))
			if err != nil {
				t.Fatal(err)
			}

			if got != tt.want {
				t.Errorf("wanted %v, got: %v", tt.want, got)
			}
		})
	}
}
