// Package signature implements the regex-keyed external-function effect
// table, decoded from a JSON signature file.
//
// Patterns are compiled once at construction; For tests a name against
// every compiled pattern. JSON decoding goes through the token API because
// object-key order must be preserved -- pattern declaration order decides
// the order effects concatenate in when several patterns match one name.
package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/GaloisInc/yapall/internal/alloc"
)

// EffectKind is the closed set of recognized signature effects.
type EffectKind int

const (
	ReturnAlloc EffectKind = iota
	ReturnAliasesArg
	ReturnPointsToGlobal
	ArgMemcpyArg
	CallsArg
)

// Effect is one modeled side effect of calling a matching external
// function. Only the fields relevant to Kind are populated.
type Effect struct {
	Kind EffectKind

	AllocType alloc.Kind // ReturnAlloc: alloc.Heap, alloc.Stack, or alloc.Top

	Arg int // ReturnAliasesArg, CallsArg (reserved, unused by any rule)

	Global string // ReturnPointsToGlobal

	Dst, Src int // ArgMemcpyArg
}

// jsonEffect is the externally-tagged wire shape: a single-key object whose
// key is the kebab-case discriminator and whose value is the payload.
type jsonEffect struct {
	ReturnAlloc *struct {
		Type string `json:"type"`
	} `json:"return-alloc"`
	ReturnAliasesArg *struct {
		Arg int `json:"arg"`
	} `json:"return-aliases-arg"`
	ReturnPointsToGlobal *struct {
		Global string `json:"global"`
	} `json:"return-points-to-global"`
	ArgMemcpyArg *struct {
		Dst int `json:"dst"`
		Src int `json:"src"`
	} `json:"arg-memcpy-arg"`
	CallsArg *struct {
		Arg int `json:"arg"`
	} `json:"calls-arg"`
}

func decodeEffect(raw json.RawMessage) (Effect, error) {
	var je jsonEffect
	if err := json.Unmarshal(raw, &je); err != nil {
		return Effect{}, fmt.Errorf("decode signature effect: %w", err)
	}
	switch {
	case je.ReturnAlloc != nil:
		var kind alloc.Kind
		switch je.ReturnAlloc.Type {
		case "heap":
			kind = alloc.Heap
		case "stack":
			kind = alloc.Stack
		case "top":
			kind = alloc.Top
		default:
			return Effect{}, fmt.Errorf("unknown return-alloc type %q", je.ReturnAlloc.Type)
		}
		return Effect{Kind: ReturnAlloc, AllocType: kind}, nil
	case je.ReturnAliasesArg != nil:
		return Effect{Kind: ReturnAliasesArg, Arg: je.ReturnAliasesArg.Arg}, nil
	case je.ReturnPointsToGlobal != nil:
		return Effect{Kind: ReturnPointsToGlobal, Global: je.ReturnPointsToGlobal.Global}, nil
	case je.ArgMemcpyArg != nil:
		return Effect{Kind: ArgMemcpyArg, Dst: je.ArgMemcpyArg.Dst, Src: je.ArgMemcpyArg.Src}, nil
	case je.CallsArg != nil:
		return Effect{Kind: CallsArg, Arg: je.CallsArg.Arg}, nil
	default:
		return Effect{}, fmt.Errorf("signature effect object matched no known tag")
	}
}

// entry is one (pattern, effects) row, kept in the JSON file's declaration
// order so that For's concatenation order is deterministic and matches
// what a user reading the file top-to-bottom would expect.
type entry struct {
	pattern string
	regex   *regexp.Regexp
	effects []Effect
}

// Signatures holds the compiled pattern -> effect-list table.
type Signatures struct {
	entries []entry
}

// New decodes a JSON signature file: an object mapping regex pattern
// strings to ordered lists of tagged effects. Key order in the source JSON
// is preserved via token-level decoding, since encoding/json's map
// decoding does not guarantee it and pattern order affects For's output
// order when multiple patterns match the same name.
func New(data []byte) (*Signatures, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode signatures: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode signatures: expected a JSON object")
	}
	s := &Signatures{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode signatures: %w", err)
		}
		pattern, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("decode signatures: expected string key")
		}
		var raws []json.RawMessage
		if err := dec.Decode(&raws); err != nil {
			return nil, fmt.Errorf("decode signatures for pattern %q: %w", pattern, err)
		}
		effects := make([]Effect, 0, len(raws))
		for _, raw := range raws {
			eff, err := decodeEffect(raw)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", pattern, err)
			}
			effects = append(effects, eff)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile signature pattern %q: %w", pattern, err)
		}
		s.entries = append(s.entries, entry{pattern: pattern, regex: re, effects: effects})
	}
	return s, nil
}

// Empty returns a Signatures with no patterns: every external function
// needs its own signature, modulo the built-in allowlist.
func Empty() *Signatures { return &Signatures{} }

// For returns the concatenation, in pattern-declaration order, of every
// matching pattern's effect list. ok is false when no pattern matches --
// callers must distinguish "matched, but empty effect list" (ok=true, zero
// effects) from "nothing matched" (ok=false): only the latter feeds the
// needs-signature report.
func (s *Signatures) For(name string) ([]Effect, bool) {
	var out []Effect
	matched := false
	for _, e := range s.entries {
		if e.regex.MatchString(name) {
			matched = true
			out = append(out, e.effects...)
		}
	}
	return out, matched
}
