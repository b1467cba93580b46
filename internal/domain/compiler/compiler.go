package compiler

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// Global binding names shared with the execution host
const (
	RegistryBinding = "__assessmentRegistry__"
	TriggerBinding  = "__runAssessment__"
	ChannelBinding  = "__hostChannel__"
	MessageType     = "assessment-result"
)

//go:embed program.js
var programSource string

var program = template.Must(template.New("program").Parse(programSource))

type entry struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

type programData struct {
	Channel     string
	Registry    string
	Trigger     string
	MessageType string
	Entries     string
}

// jsSafe escapes line separators that are legal in JSON but terminate
// string literals in older ECMAScript engines
var jsSafe = strings.NewReplacer("\u2028", `\u2028`, "\u2029", `\u2029`)

// Compile produces the assessment program for assertions, in order.
// Identical input yields byte-identical output.
func Compile(assertions []types.Assertion) string {
	entries := make([]entry, len(assertions))
	for i, a := range assertions {
		entries[i] = entry{Index: a.Index, Name: a.Name, Source: a.PredicateSource}
	}

	encoded, err := sonic.ConfigStd.Marshal(entries)
	if err != nil {
		// strings and ints always encode
		panic(err)
	}

	var buf bytes.Buffer
	err = program.Execute(&buf, programData{
		Channel:     ChannelBinding,
		Registry:    RegistryBinding,
		Trigger:     TriggerBinding,
		MessageType: MessageType,
		Entries:     jsSafe.Replace(string(encoded)),
	})
	if err != nil {
		panic(err)
	}
	return buf.String()
}
