// Package normalizer maps the document parser's loosely shaped prediction
// into the canonical resume. Missing or oddly typed fields are filled with
// defaults; only input that is not JSON at all is an error.
package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/p-shah256/resume-tailor/pkg/types"
)

var ErrMalformedPayload = errors.New("parser payload is not valid JSON")

// upstreamKeys are the prediction keys with a dedicated mapping.
var upstreamKeys = []string{
	"contact_info", "summary", "experience", "work_experience",
	"education", "skills", "technical_skills", "projects", "additional_sections",
}

var contactKeys = []string{"full_name", "address", "email", "phone", "linkedin", "github"}

// skillSources maps each skill category to the key it is read from, first
// under "skills" and then at the top level.
var skillSources = []struct {
	category string
	key      string
}{
	{"languages", "programming_languages"},
	{"frameworks", "frameworks"},
	{"tools", "tools"},
	{"concepts", "concepts"},
}

// Normalize converts a prediction envelope ({"response": {...}}) into a
// ResumeData. Empty input or a missing payload yields DefaultResume.
func Normalize(raw []byte) (types.ResumeData, error) {
	logger := slog.With("component", "normalizer", "operation", "Normalize")

	if len(bytes.TrimSpace(raw)) == 0 {
		logger.Warn("Empty parser response, returning default structure")
		return types.DefaultResume(), nil
	}
	if !gjson.ValidBytes(raw) {
		return types.ResumeData{}, ErrMalformedPayload
	}

	payload := gjson.GetBytes(raw, "response")
	if !payload.IsObject() {
		logger.Warn("Parser response has no payload, returning default structure")
		return types.DefaultResume(), nil
	}

	resume := types.DefaultResume()
	resume.Contact = contact(payload.Get("contact_info"))
	resume.Summary = summaryText(payload.Get("summary"))

	if exp := payload.Get("experience"); exp.IsArray() {
		resume.Experience = experience(exp)
	}
	if work := payload.Get("work_experience"); work.IsArray() {
		resume.WorkExperience = workExperience(work)
	}
	if edu := payload.Get("education"); edu.IsArray() {
		resume.Education = education(edu)
	}
	if proj := payload.Get("projects"); proj.IsArray() {
		resume.Projects = projects(proj)
	}

	if ts := payload.Get("technical_skills"); truthy(ts) {
		if ts.IsObject() {
			resume.TechnicalSkills = objectFields(ts)
		} else {
			resume.Extra.Set(types.KeyTechnicalSkills, compact(ts.Raw))
		}
	}

	if as := payload.Get("additional_sections"); as.IsObject() {
		resume.AdditionalSections = additionalSections(as)
	}

	var consumed []string
	resume.Skills, consumed = skills(payload)

	payload.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if slices.Contains(upstreamKeys, name) ||
			slices.Contains(consumed, name) ||
			slices.Contains(types.KnownKeys, name) {
			return true
		}
		if (value.IsArray() && len(value.Array()) > 0) || (value.IsObject() && len(value.Map()) > 0) {
			resume.Extra.Set(name, compact(value.Raw))
		}
		return true
	})

	logger.Debug("Normalized parser response",
		"experience", len(resume.Experience),
		"projects", len(resume.Projects),
		"extra_sections", strings.Join(resume.Extra.Keys(), ","))

	return resume, nil
}

// SplitList accepts an array or a comma separated string and returns the
// trimmed, non-empty items in order.
func SplitList(value gjson.Result) []string {
	items := []string{}
	switch {
	case value.IsArray():
		value.ForEach(func(_, item gjson.Result) bool {
			s := text(item)
			if item.IsObject() {
				s = text(item.Get("name"))
			}
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
			return true
		})
	case value.Type == gjson.String:
		for _, part := range strings.Split(value.Str, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}

func contact(info gjson.Result) types.Contact {
	if !info.IsObject() {
		return types.Contact{}
	}
	c := types.Contact{
		Name:     text(info.Get("full_name")),
		Location: text(info.Get("address")),
		Email:    text(info.Get("email")),
		Phone:    text(info.Get("phone")),
		LinkedIn: text(info.Get("linkedin")),
		GitHub:   text(info.Get("github")),
	}
	info.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if slices.Contains(contactKeys, name) || !truthy(value) {
			return true
		}
		if value.Type == gjson.String && strings.TrimSpace(value.Str) == "" {
			return true
		}
		c.Extra.Set(name, compact(value.Raw))
		return true
	})
	return c
}

func experience(list gjson.Result) []types.Experience {
	out := []types.Experience{}
	list.ForEach(func(_, e gjson.Result) bool {
		responsibilities := listOrWrap(e.Get("description"))
		if !truthy(e.Get("description")) {
			responsibilities = stringArray(e.Get("responsibilities"))
		}
		out = append(out, types.Experience{
			Title:            text(e.Get("title")),
			Company:          text(e.Get("company")),
			Location:         text(e.Get("location")),
			StartDate:        text(e.Get("start_date")),
			EndDate:          text(e.Get("end_date")),
			Responsibilities: responsibilities,
		})
		return true
	})
	return out
}

func workExperience(list gjson.Result) []types.WorkExperience {
	out := []types.WorkExperience{}
	list.ForEach(func(_, e gjson.Result) bool {
		out = append(out, types.WorkExperience{
			Company:          text(e.Get("company")),
			Position:         text(e.Get("position")),
			StartDate:        text(e.Get("start_date")),
			EndDate:          text(e.Get("end_date")),
			IsCurrent:        e.Get("is_current").Bool(),
			Responsibilities: stringArray(e.Get("responsibilities")),
			Technologies:     listOrWrap(e.Get("technologies")),
		})
		return true
	})
	return out
}

func education(list gjson.Result) []types.Education {
	out := []types.Education{}
	list.ForEach(func(_, e gjson.Result) bool {
		out = append(out, types.Education{
			Degree:      text(e.Get("degree")),
			Institution: text(e.Get("institution")),
			Years:       text(e.Get("start_date")) + " - " + text(e.Get("end_date")),
			GPA:         text(e.Get("gpa")),
		})
		return true
	})
	return out
}

func projects(list gjson.Result) []types.Project {
	out := []types.Project{}
	list.ForEach(func(_, p gjson.Result) bool {
		name := text(p.Get("name"))
		if name == "" {
			name = text(p.Get("title"))
		}
		out = append(out, types.Project{
			Name:        name,
			Description: listOrWrap(p.Get("description")),
		})
		return true
	})
	return out
}

func skills(payload gjson.Result) (types.Skills, []string) {
	var consumed []string
	nested := payload.Get("skills")
	lists := make([][]string, len(skillSources))

	for i, src := range skillSources {
		value := gjson.Result{}
		if nested.IsObject() {
			value = nested.Get(src.key)
		}
		if !truthy(value) {
			value = payload.Get(src.key)
			if truthy(value) {
				consumed = append(consumed, src.key)
			}
		}
		lists[i] = SplitList(value)
	}

	// a bare list of skills carries no category
	if nested.IsArray() || nested.Type == gjson.String {
		lists[3] = append(lists[3], SplitList(nested)...)
	}

	return types.Skills{
		Languages:  lists[0],
		Frameworks: lists[1],
		Tools:      lists[2],
		Concepts:   lists[3],
	}, consumed
}

func additionalSections(obj gjson.Result) types.Fields {
	out := types.Fields{}
	obj.ForEach(func(key, value gjson.Result) bool {
		switch {
		case value.IsArray():
			out.Set(key.String(), compact(value.Raw))
		case value.Type == gjson.String:
			wrapped, _ := json.Marshal([]string{value.Str})
			out.Set(key.String(), wrapped)
		}
		return true
	})
	return out
}

func objectFields(obj gjson.Result) types.Fields {
	fields, err := types.DecodeFields([]byte(obj.Raw))
	if err != nil {
		return types.Fields{}
	}
	return fields
}

// text mirrors a "value or empty string" read: strings and numbers are kept,
// everything else becomes "".
func text(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	}
	return ""
}

// summaryText keeps a summary that arrives as a list of sentences or an
// object instead of dropping it.
func summaryText(r gjson.Result) string {
	switch {
	case r.IsArray():
		return strings.Join(stringArray(r), " ")
	case r.IsObject():
		return string(compact(r.Raw))
	}
	return text(r)
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	}
	return r.Exists()
}

// stringArray keeps an array's elements as strings and ignores non-arrays.
func stringArray(r gjson.Result) []string {
	out := []string{}
	if !r.IsArray() {
		return out
	}
	r.ForEach(func(_, item gjson.Result) bool {
		if item.Type == gjson.String {
			out = append(out, item.Str)
		} else {
			out = append(out, item.Raw)
		}
		return true
	})
	return out
}

// listOrWrap returns an array as is or a single truthy value as a
// one-element list.
func listOrWrap(r gjson.Result) []string {
	if r.IsArray() {
		return stringArray(r)
	}
	if !truthy(r) {
		return []string{}
	}
	if r.Type == gjson.String {
		return []string{r.Str}
	}
	return []string{r.Raw}
}

func compact(raw string) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return json.RawMessage(raw)
	}
	return buf.Bytes()
}
