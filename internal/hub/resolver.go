// Package hub – Intent Resolver
//
// This file turns a user message plus conversation context into a candidate
// (action, parameters) pair, a clarification request, or a confirmation /
// cancellation of the thread's pending invocation.
//
// Resolution strategy:
//  1. If the message is a short affirmative/negative ("yes", "cancel",
//     "いいえ"), classify it as a confirmation or cancellation. The executor
//     owns the thread state and answers "nothing pending" when no invocation
//     is waiting.
//  2. Otherwise score every catalog action by token overlap between the
//     message and the action's vocabulary (action type, display name,
//     description, spoke name), with a boost for the action-type words
//     appearing as a phrase.
//  3. If the top two candidates score within a narrow margin, return an
//     ambiguous resolution rather than silently picking a candidate, and in
//     particular never the more destructive one.
//
// Parameter values extracted from free text are normalized to the declared
// types before they reach the executor; malformed values yield an error
// attributed to the specific parameter.
package hub

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taskmind/go-hub-backend/internal/catalog"
	"github.com/taskmind/go-hub-backend/internal/spoke"
)

// ResolutionKind classifies the resolver's output.
type ResolutionKind int

const (
	// KindNoMatch: no action scored above the floor.
	KindNoMatch ResolutionKind = iota
	// KindResolved: exactly one action matched confidently.
	KindResolved
	// KindAmbiguous: several actions scored within the tie margin.
	KindAmbiguous
	// KindConfirm: short affirmative reply.
	KindConfirm
	// KindCancel: short negative reply.
	KindCancel
)

// Resolution is the resolver's structured output.
type Resolution struct {
	Kind       ResolutionKind
	Action     *catalog.ActionDefinition
	Params     map[string]any
	Candidates []catalog.ActionDefinition
}

// Resolver maps free-form messages onto the action catalog. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	Registry *spoke.Registry

	// Floor is the minimum score for a confident match; TieMargin is the
	// relative band within which two candidates are considered tied.
	Floor     float64
	TieMargin float64
}

// NewResolver constructs a Resolver with default scoring thresholds.
func NewResolver(reg *spoke.Registry) *Resolver {
	return &Resolver{Registry: reg, Floor: 0.25, TieMargin: 0.15}
}

// Resolve maps a message to a Resolution. It never returns an error:
// unresolvable input is a NoMatch or Ambiguous resolution, which the
// executor reports as a clarification. Confirmation and cancellation are
// classified here regardless of thread state; whether anything is actually
// pending is the executor's call.
func (r *Resolver) Resolve(message string) Resolution {
	msg := lowerCaser.String(strings.TrimSpace(message))

	if isShortReply(msg) {
		if isAffirmative(msg) {
			return Resolution{Kind: KindConfirm}
		}
		if isNegative(msg) {
			return Resolution{Kind: KindCancel}
		}
		// A short non-answer falls through to catalog matching.
	}

	actions := r.Registry.ListActions()
	tokens := messageTokens(msg)
	if len(tokens) == 0 {
		return Resolution{Kind: KindNoMatch}
	}

	type scored struct {
		def   catalog.ActionDefinition
		score float64
	}
	best := make([]scored, 0, len(actions))
	for _, def := range actions {
		if s := scoreAction(msg, tokens, &def); s > 0 {
			best = append(best, scored{def: def, score: s})
		}
	}
	if len(best) == 0 {
		return Resolution{Kind: KindNoMatch}
	}

	// Highest score first; stable identity order for equal scores.
	top, second := pickTopTwo(best, func(s scored) (float64, string) { return s.score, s.def.Identity() })

	if best[top].score < r.Floor {
		return Resolution{Kind: KindNoMatch}
	}
	if second >= 0 && best[second].score >= best[top].score*(1-r.TieMargin) {
		return Resolution{
			Kind:       KindAmbiguous,
			Candidates: []catalog.ActionDefinition{best[top].def, best[second].def},
		}
	}

	def := best[top].def
	params := extractParams(message, &def)
	return Resolution{Kind: KindResolved, Action: &def, Params: params}
}

// pickTopTwo returns the indices of the two highest-scoring entries (second
// is -1 when there is only one). Ties on score break on the key string so
// output is deterministic.
func pickTopTwo[T any](items []T, key func(T) (float64, string)) (top, second int) {
	top, second = 0, -1
	better := func(i, j int) bool {
		si, ki := key(items[i])
		sj, kj := key(items[j])
		if si != sj {
			return si > sj
		}
		return ki < kj
	}
	for i := 1; i < len(items); i++ {
		if better(i, top) {
			second = top
			top = i
		} else if second < 0 || better(i, second) {
			second = i
		}
	}
	return top, second
}

// --- Scoring ---

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// lowerCaser lowercases with Unicode-correct casing rules.
var lowerCaser = cases.Lower(language.Und)

// resolveStop drops filler words before scoring.
var resolveStop = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
	"please": {}, "can": {}, "could": {}, "would": {}, "you": {}, "me": {}, "my": {},
	"i": {}, "want": {}, "need": {}, "like": {},
}

// messageTokens extracts lowercase non-stopword tokens from a message.
func messageTokens(lowerMsg string) []string {
	raw := wordRE.FindAllString(lowerMsg, -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if _, stop := resolveStop[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// scoreAction blends token overlap between the message and the action's
// vocabulary with a phrase boost when the action-type words appear in order.
func scoreAction(lowerMsg string, tokens []string, def *catalog.ActionDefinition) float64 {
	vocab := make(map[string]struct{})
	addWords := func(s string) {
		for _, w := range wordRE.FindAllString(strings.ToLower(s), -1) {
			vocab[w] = struct{}{}
		}
	}
	addWords(strings.ReplaceAll(def.ActionType, "_", " "))
	addWords(def.DisplayName)
	addWords(def.Description)
	addWords(def.SpokeName)

	hits := 0
	for _, t := range tokens {
		if _, ok := vocab[t]; ok {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	score := float64(hits) / float64(len(tokens))

	// Phrase boost: "delete task" matching delete_task outweighs scattered
	// word hits.
	phrase := strings.ReplaceAll(def.ActionType, "_", " ")
	if strings.Contains(lowerMsg, phrase) {
		score += 0.35
	}
	if score > 1 {
		score = 1
	}
	return score
}

// --- Confirmation shortcuts ---

var affirmatives = map[string]struct{}{
	"yes": {}, "y": {}, "yep": {}, "yeah": {}, "ok": {}, "okay": {},
	"sure": {}, "confirm": {}, "confirmed": {}, "do it": {}, "go ahead": {},
	"はい": {}, "oui": {}, "ja": {}, "si": {}, "sí": {},
}

var negatives = map[string]struct{}{
	"no": {}, "n": {}, "nope": {}, "cancel": {}, "stop": {}, "abort": {},
	"never mind": {}, "nevermind": {}, "don't": {}, "dont": {},
	"いいえ": {}, "non": {}, "nein": {},
}

// isShortReply bounds the pending-invocation shortcut to terse replies so a
// full new request re-matches against the catalog instead.
func isShortReply(lowerMsg string) bool {
	return len(wordRE.FindAllString(lowerMsg, -1)) <= 3
}

func isAffirmative(lowerMsg string) bool {
	m := strings.Trim(lowerMsg, " .!?,")
	_, ok := affirmatives[m]
	return ok
}

func isNegative(lowerMsg string) bool {
	m := strings.Trim(lowerMsg, " .!?,")
	_, ok := negatives[m]
	return ok
}

// --- Parameter extraction ---

var (
	// keyValRE matches explicit "name: value" / name=value pairs; values may
	// be quoted to include spaces.
	keyValRE = regexp.MustCompile(`(\p{L}[\p{L}\p{N}_]*)\s*[:=]\s*("([^"]*)"|[^\s,]+)`)
	// quotedRE captures free-standing quoted strings.
	quotedRE = regexp.MustCompile(`"([^"]+)"`)
	// isoRE captures ISO-8601 dates and timestamps anywhere in the text.
	isoRE = regexp.MustCompile(`\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:\d{2})?)?`)
	// numberRE captures standalone numbers.
	numberRE = regexp.MustCompile(`(?:^|\s)(-?\d+(?:\.\d+)?)(?:\s|$)`)
)

// extractParams pulls best-effort parameter values from free text for the
// resolved action. Explicit key:value pairs win; otherwise the first quoted
// string feeds the first required string parameter, ISO dates feed datetime
// parameters, and bare numbers feed number parameters. Values stay raw here;
// the executor normalizes them via catalog.ValidateParams so malformed input
// is attributed to its field.
func extractParams(message string, def *catalog.ActionDefinition) map[string]any {
	params := make(map[string]any)

	for _, m := range keyValRE.FindAllStringSubmatch(message, -1) {
		name := strings.ToLower(m[1])
		if _, declared := def.Parameters[name]; !declared {
			continue
		}
		val := m[2]
		if m[3] != "" || strings.HasPrefix(m[2], `"`) {
			val = m[3]
		}
		params[name] = val
	}

	// Positional fallbacks for parameters not named explicitly.
	if q := quotedRE.FindStringSubmatch(message); q != nil {
		if name := firstFreeParam(def, params, catalog.TypeString, true); name != "" {
			params[name] = q[1]
		}
	}
	if iso := isoRE.FindString(message); iso != "" {
		if name := firstFreeParam(def, params, catalog.TypeDatetime, false); name != "" {
			params[name] = iso
		}
	}
	if n := numberRE.FindStringSubmatch(message); n != nil {
		if name := firstFreeParam(def, params, catalog.TypeNumber, false); name != "" {
			params[name] = n[1]
		}
	}
	return params
}

// firstFreeParam returns the name of an unfilled parameter of the wanted
// type, preferring required ones; requiredOnly limits the search to required
// parameters. Iteration order over the map is made deterministic by picking
// the lexicographically smallest name.
func firstFreeParam(def *catalog.ActionDefinition, filled map[string]any, typ string, requiredOnly bool) string {
	pick := func(required bool) string {
		best := ""
		for name, p := range def.Parameters {
			if p.Type != typ || p.Required != required {
				continue
			}
			if _, done := filled[name]; done {
				continue
			}
			if best == "" || name < best {
				best = name
			}
		}
		return best
	}
	if name := pick(true); name != "" {
		return name
	}
	if requiredOnly {
		return ""
	}
	return pick(false)
}
