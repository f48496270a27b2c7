package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// =============== RESUME TYPES ===============

type Contact struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	LinkedIn string `json:"linkedin"`
	GitHub   string `json:"github"`
	// Extra holds additional contact details in the order they were found.
	Extra Fields `json:"-"`
}

type Experience struct {
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	Location         string   `json:"location"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	Responsibilities []string `json:"responsibilities"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Years       string `json:"years"`
	GPA         string `json:"gpa"`
}

type Skills struct {
	Languages  []string `json:"languages"`
	Frameworks []string `json:"frameworks"`
	Tools      []string `json:"tools"`
	Concepts   []string `json:"concepts"`
}

type Project struct {
	Name        string   `json:"name"`
	Description []string `json:"description"`
}

type WorkExperience struct {
	Company          string   `json:"company"`
	Position         string   `json:"position"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	IsCurrent        bool     `json:"isCurrent"`
	Responsibilities []string `json:"responsibilities"`
	Technologies     []string `json:"technologies"`
}

// ResumeData is the canonical resume shape exchanged by every component.
//
// Education, WorkExperience, TechnicalSkills and AdditionalSections are
// optional: nil means the section is absent and it is left out of the JSON.
// Extra carries every other top-level key verbatim and in order.
type ResumeData struct {
	Contact            Contact
	Summary            string
	Experience         []Experience
	Education          []Education
	Skills             Skills
	Projects           []Project
	WorkExperience     []WorkExperience
	TechnicalSkills    Fields
	AdditionalSections Fields
	Extra              Fields
}

const (
	KeyContact            = "contact"
	KeySummary            = "summary"
	KeyExperience         = "experience"
	KeyEducation          = "education"
	KeySkills             = "skills"
	KeyProjects           = "projects"
	KeyWorkExperience     = "workExperience"
	KeyTechnicalSkills    = "technical_skills"
	KeyAdditionalSections = "additionalSections"
)

// KnownKeys lists the top-level keys with a dedicated field, in output order.
var KnownKeys = []string{
	KeyContact, KeySummary, KeyExperience, KeyEducation, KeySkills,
	KeyProjects, KeyWorkExperience, KeyTechnicalSkills, KeyAdditionalSections,
}

// DefaultResume returns a resume with every section present and empty.
func DefaultResume() ResumeData {
	return ResumeData{
		Experience: []Experience{},
		Education:  []Education{},
		Skills: Skills{
			Languages:  []string{},
			Frameworks: []string{},
			Tools:      []string{},
			Concepts:   []string{},
		},
		Projects: []Project{},
	}
}

// =============== JSON ===============

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (e Experience) MarshalJSON() ([]byte, error) {
	type alias Experience
	a := alias(e)
	a.Responsibilities = orEmpty(a.Responsibilities)
	return json.Marshal(a)
}

func (s Skills) MarshalJSON() ([]byte, error) {
	type alias Skills
	a := alias(s)
	a.Languages = orEmpty(a.Languages)
	a.Frameworks = orEmpty(a.Frameworks)
	a.Tools = orEmpty(a.Tools)
	a.Concepts = orEmpty(a.Concepts)
	return json.Marshal(a)
}

func (p Project) MarshalJSON() ([]byte, error) {
	type alias Project
	a := alias(p)
	a.Description = orEmpty(a.Description)
	return json.Marshal(a)
}

func (w WorkExperience) MarshalJSON() ([]byte, error) {
	type alias WorkExperience
	a := alias(w)
	a.Responsibilities = orEmpty(a.Responsibilities)
	a.Technologies = orEmpty(a.Technologies)
	return json.Marshal(a)
}

var contactKeys = []string{"name", "location", "email", "phone", "linkedin", "github"}

func (c Contact) MarshalJSON() ([]byte, error) {
	out := make(Fields, 0, len(contactKeys)+len(c.Extra))
	for i, v := range []string{c.Name, c.Location, c.Email, c.Phone, c.LinkedIn, c.GitHub} {
		if err := out.SetValue(contactKeys[i], v); err != nil {
			return nil, err
		}
	}
	for _, f := range c.Extra {
		if slices.Contains(contactKeys, f.Key) {
			continue
		}
		out = append(out, f)
	}
	return out.MarshalJSON()
}

func (c *Contact) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*c = Contact{}
		return nil
	}
	fields, err := DecodeFields(data)
	if err != nil {
		return fmt.Errorf("contact: %w", err)
	}
	*c = Contact{}
	targets := []*string{&c.Name, &c.Location, &c.Email, &c.Phone, &c.LinkedIn, &c.GitHub}
	for _, f := range fields {
		if i := slices.Index(contactKeys, f.Key); i >= 0 {
			// non-string values for known keys fall back to ""
			_ = json.Unmarshal(f.Value, targets[i])
			continue
		}
		c.Extra = append(c.Extra, f)
	}
	return nil
}

func (r ResumeData) MarshalJSON() ([]byte, error) {
	out := make(Fields, 0, len(KnownKeys)+len(r.Extra))
	add := func(key string, v any) error { return out.SetValue(key, v) }

	if err := add(KeyContact, r.Contact); err != nil {
		return nil, err
	}
	if err := add(KeySummary, r.Summary); err != nil {
		return nil, err
	}
	if err := add(KeyExperience, orEmptySlice(r.Experience)); err != nil {
		return nil, err
	}
	if r.Education != nil {
		if err := add(KeyEducation, r.Education); err != nil {
			return nil, err
		}
	}
	if err := add(KeySkills, r.Skills); err != nil {
		return nil, err
	}
	if err := add(KeyProjects, orEmptySlice(r.Projects)); err != nil {
		return nil, err
	}
	if r.WorkExperience != nil {
		if err := add(KeyWorkExperience, r.WorkExperience); err != nil {
			return nil, err
		}
	}
	if r.TechnicalSkills != nil {
		if err := add(KeyTechnicalSkills, r.TechnicalSkills); err != nil {
			return nil, err
		}
	}
	if r.AdditionalSections != nil {
		if err := add(KeyAdditionalSections, r.AdditionalSections); err != nil {
			return nil, err
		}
	}
	for _, f := range r.Extra {
		if out.Has(f.Key) {
			continue
		}
		out = append(out, f)
	}
	return out.MarshalJSON()
}

func orEmptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (r *ResumeData) UnmarshalJSON(data []byte) error {
	fields, err := DecodeFields(data)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	var res ResumeData
	for _, f := range fields {
		var target any
		switch f.Key {
		case KeyContact:
			target = &res.Contact
		case KeySummary:
			target = &res.Summary
		case KeyExperience:
			target = &res.Experience
		case KeyEducation:
			target = &res.Education
		case KeySkills:
			target = &res.Skills
		case KeyProjects:
			target = &res.Projects
		case KeyWorkExperience:
			target = &res.WorkExperience
		case KeyTechnicalSkills, KeyAdditionalSections:
			obj, err := DecodeFields(f.Value)
			if err != nil {
				res.Extra = append(res.Extra, f)
				continue
			}
			if f.Key == KeyTechnicalSkills {
				res.TechnicalSkills = obj
			} else {
				res.AdditionalSections = obj
			}
			continue
		default:
			res.Extra = append(res.Extra, f)
			continue
		}
		if err := json.Unmarshal(f.Value, target); err != nil {
			return fmt.Errorf("resume field %q: %w", f.Key, err)
		}
	}
	*r = res
	return nil
}

// =============== COPY ===============

// Clone returns a deep copy. Nil slices stay nil so an untouched clone is
// deep-equal to its source.
func (r ResumeData) Clone() ResumeData {
	out := ResumeData{
		Contact: Contact{
			Name:     r.Contact.Name,
			Location: r.Contact.Location,
			Email:    r.Contact.Email,
			Phone:    r.Contact.Phone,
			LinkedIn: r.Contact.LinkedIn,
			GitHub:   r.Contact.GitHub,
			Extra:    r.Contact.Extra.Clone(),
		},
		Summary:   r.Summary,
		Education: slices.Clone(r.Education),
		Skills: Skills{
			Languages:  slices.Clone(r.Skills.Languages),
			Frameworks: slices.Clone(r.Skills.Frameworks),
			Tools:      slices.Clone(r.Skills.Tools),
			Concepts:   slices.Clone(r.Skills.Concepts),
		},
		TechnicalSkills:    r.TechnicalSkills.Clone(),
		AdditionalSections: r.AdditionalSections.Clone(),
		Extra:              r.Extra.Clone(),
	}
	if r.Experience != nil {
		out.Experience = make([]Experience, len(r.Experience))
		for i, e := range r.Experience {
			e.Responsibilities = slices.Clone(e.Responsibilities)
			out.Experience[i] = e
		}
	}
	if r.Projects != nil {
		out.Projects = make([]Project, len(r.Projects))
		for i, p := range r.Projects {
			p.Description = slices.Clone(p.Description)
			out.Projects[i] = p
		}
	}
	if r.WorkExperience != nil {
		out.WorkExperience = make([]WorkExperience, len(r.WorkExperience))
		for i, w := range r.WorkExperience {
			w.Responsibilities = slices.Clone(w.Responsibilities)
			w.Technologies = slices.Clone(w.Technologies)
			out.WorkExperience[i] = w
		}
	}
	return out
}
