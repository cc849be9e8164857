package scorm

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
)

type profileSpec struct {
	namespaces    []xml.Attr
	schemaVersion string
	scormTypeAttr string
}

var profiles = map[Profile]profileSpec{
	Profile12: {
		namespaces: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: "http://www.imsproject.org/xsd/imscp_rootv1p1p2"},
			{Name: xml.Name{Local: "xmlns:adlcp"}, Value: "http://www.adlnet.org/xsd/adlcp_rootv1p2"},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: "http://www.w3.org/2001/XMLSchema-instance"},
			{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: "http://www.imsproject.org/xsd/imscp_rootv1p1p2 imscp_rootv1p1p2.xsd " +
				"http://www.imsglobal.org/xsd/imsmd_rootv1p2p1 imsmd_rootv1p2p1.xsd " +
				"http://www.adlnet.org/xsd/adlcp_rootv1p2 adlcp_rootv1p2.xsd"},
		},
		schemaVersion: "1.2",
		scormTypeAttr: "adlcp:scormtype",
	},
	Profile2004: {
		namespaces: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: "http://www.imsglobal.org/xsd/imscp_v1p1"},
			{Name: xml.Name{Local: "xmlns:adlcp"}, Value: "http://www.adlnet.org/xsd/adlcp_v1p3"},
			{Name: xml.Name{Local: "xmlns:adlseq"}, Value: "http://www.adlnet.org/xsd/adlseq_v1p3"},
			{Name: xml.Name{Local: "xmlns:adlnav"}, Value: "http://www.adlnet.org/xsd/adlnav_v1p3"},
			{Name: xml.Name{Local: "xmlns:imsss"}, Value: "http://www.imsglobal.org/xsd/imsss"},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: "http://www.w3.org/2001/XMLSchema-instance"},
			{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: "http://www.imsglobal.org/xsd/imscp_v1p1 imscp_v1p1.xsd " +
				"http://www.adlnet.org/xsd/adlcp_v1p3 adlcp_v1p3.xsd " +
				"http://www.adlnet.org/xsd/adlseq_v1p3 adlseq_v1p3.xsd " +
				"http://www.adlnet.org/xsd/adlnav_v1p3 adlnav_v1p3.xsd " +
				"http://www.imsglobal.org/xsd/imsss imsss_v1p0.xsd"},
		},
		schemaVersion: "2004 4th Edition",
		scormTypeAttr: "adlcp:scormType",
	},
}

// Manifest is the imsmanifest.xml document. Namespace declarations and the
// profile-specific scorm type attribute are carried as raw attributes since
// encoding/xml cannot emit fixed prefixes from struct tags.
type Manifest struct {
	XMLName       xml.Name      `xml:"manifest"`
	Identifier    string        `xml:"identifier,attr"`
	Version       string        `xml:"version,attr"`
	Attrs         []xml.Attr    `xml:",any,attr"`
	Metadata      Metadata      `xml:"metadata"`
	Organizations Organizations `xml:"organizations"`
	Resources     Resources     `xml:"resources"`

	profile Profile
	mode    Mode
}

type Metadata struct {
	Schema        string `xml:"schema"`
	SchemaVersion string `xml:"schemaversion"`
}

type Organizations struct {
	Default       string         `xml:"default,attr"`
	Organizations []Organization `xml:"organization"`
}

type Organization struct {
	Identifier string `xml:"identifier,attr"`
	Title      string `xml:"title"`
	Items      []Item `xml:"item"`
}

type Item struct {
	Identifier    string `xml:"identifier,attr"`
	IdentifierRef string `xml:"identifierref,attr,omitempty"`
	Parameters    string `xml:"parameters,attr,omitempty"`
	Title         string `xml:"title"`
	Items         []Item `xml:"item"`
}

type Resources struct {
	Resources []Resource `xml:"resource"`
}

type Resource struct {
	Identifier   string       `xml:"identifier,attr"`
	Type         string       `xml:"type,attr"`
	Attrs        []xml.Attr   `xml:",any,attr"`
	Href         string       `xml:"href,attr,omitempty"`
	Files        []File       `xml:"file"`
	Dependencies []Dependency `xml:"dependency"`
}

type File struct {
	Href string `xml:"href,attr"`
}

type Dependency struct {
	IdentifierRef string `xml:"identifierref,attr"`
}

// BuildManifest derives the manifest for course. videos maps each lesson slot
// that acquired a bundled video to its archive path; slots absent from the map
// carry no video file.
func BuildManifest(course model.Course, videos map[model.LessonKey]string, profile Profile, mode Mode) (*Manifest, error) {
	spec, ok := profiles[profile]
	if !ok {
		return nil, fmt.Errorf("build manifest: unsupported profile %q", profile)
	}
	if mode != ModeMulti && mode != ModeSingle {
		return nil, fmt.Errorf("build manifest: unsupported mode %q", mode)
	}

	m := &Manifest{
		Identifier: "MANIFEST_" + strings.ReplaceAll(course.ID.String(), "-", ""),
		Version:    "1.0",
		Attrs:      append([]xml.Attr(nil), spec.namespaces...),
		Metadata:   Metadata{Schema: "ADL SCORM", SchemaVersion: spec.schemaVersion},
		profile:    profile,
		mode:       mode,
	}

	org := Organization{Identifier: OrganizationID, Title: courseTitle(course)}
	var lessonResources []Resource
	aggregate := Resource{
		Identifier:   AggregateResourceID,
		Type:         "webcontent",
		Attrs:        []xml.Attr{{Name: xml.Name{Local: spec.scormTypeAttr}, Value: "sco"}},
		Href:         IndexPath,
		Files:        []File{{Href: IndexPath}},
		Dependencies: []Dependency{{IdentifierRef: RuntimeResourceID}},
	}

	for _, mod := range course.Modules {
		modItem := Item{Identifier: ModuleItemID(mod.Number), Title: ModuleTitle(mod)}
		for _, lesson := range mod.Lessons {
			key := model.LessonKey{ModuleNumber: mod.Number, LessonIndex: lesson.Index}
			page := PagePath(key)
			item := Item{Identifier: LessonItemID(key), Title: LessonTitle(lesson)}

			files := []File{{Href: page}}
			if v := videos[key]; v != "" {
				files = append(files, File{Href: v})
			}

			if mode == ModeSingle {
				item.IdentifierRef = AggregateResourceID
				item.Parameters = "?page=" + page
				aggregate.Files = append(aggregate.Files, files...)
			} else {
				item.IdentifierRef = LessonResourceID(key)
				lessonResources = append(lessonResources, Resource{
					Identifier:   LessonResourceID(key),
					Type:         "webcontent",
					Attrs:        []xml.Attr{{Name: xml.Name{Local: spec.scormTypeAttr}, Value: "sco"}},
					Href:         page,
					Files:        files,
					Dependencies: []Dependency{{IdentifierRef: RuntimeResourceID}},
				})
			}
			modItem.Items = append(modItem.Items, item)
		}
		org.Items = append(org.Items, modItem)
	}

	if mode == ModeSingle {
		m.Resources.Resources = append(m.Resources.Resources, aggregate)
	} else {
		m.Resources.Resources = append(m.Resources.Resources, lessonResources...)
	}
	m.Resources.Resources = append(m.Resources.Resources, Resource{
		Identifier: RuntimeResourceID,
		Type:       "webcontent",
		Attrs:      []xml.Attr{{Name: xml.Name{Local: spec.scormTypeAttr}, Value: "asset"}},
		Href:       RuntimeScriptPath,
		Files:      []File{{Href: RuntimeScriptPath}},
	})

	m.Organizations = Organizations{Default: OrganizationID, Organizations: []Organization{org}}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) Profile() Profile { return m.profile }
func (m *Manifest) Mode() Mode { return m.mode }

// Marshal renders the manifest with an XML declaration. Titles and attribute
// values are escaped by the encoder.
func (m *Manifest) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// Validate checks that identifiers are unique and that every item and
// dependency reference resolves to exactly one resource.
func (m *Manifest) Validate() error {
	resources := make(map[string]int, len(m.Resources.Resources))
	for _, r := range m.Resources.Resources {
		resources[r.Identifier]++
	}
	for id, n := range resources {
		if n > 1 {
			return fmt.Errorf("manifest: resource %s declared %d times", id, n)
		}
	}

	items := map[string]bool{}
	var walk func(seen map[string]bool, list []Item) error
	walk = func(seen map[string]bool, list []Item) error {
		for _, it := range list {
			if seen[it.Identifier] {
				return fmt.Errorf("manifest: item %s declared twice", it.Identifier)
			}
			seen[it.Identifier] = true
			if it.IdentifierRef != "" && resources[it.IdentifierRef] != 1 {
				return fmt.Errorf("manifest: item %s references unknown resource %s", it.Identifier, it.IdentifierRef)
			}
			if err := walk(seen, it.Items); err != nil {
				return err
			}
		}
		return nil
	}
	for _, org := range m.Organizations.Organizations {
		if err := walk(items, org.Items); err != nil {
			return err
		}
	}
	if m.Organizations.Default != "" {
		found := false
		for _, org := range m.Organizations.Organizations {
			found = found || org.Identifier == m.Organizations.Default
		}
		if !found {
			return fmt.Errorf("manifest: default organization %s missing", m.Organizations.Default)
		}
	}
	for _, r := range m.Resources.Resources {
		for _, d := range r.Dependencies {
			if resources[d.IdentifierRef] != 1 {
				return fmt.Errorf("manifest: resource %s depends on unknown resource %s", r.Identifier, d.IdentifierRef)
			}
		}
	}
	return nil
}

// ReferencedFiles lists every file href declared by any resource, sorted.
func (m *Manifest) ReferencedFiles() []string {
	seen := map[string]bool{}
	for _, r := range m.Resources.Resources {
		for _, f := range r.Files {
			seen[f.Href] = true
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// LessonResources maps each lesson item to the resource it launches.
func (m *Manifest) LessonResources() map[string]string {
	out := map[string]string{}
	var walk func([]Item)
	walk = func(list []Item) {
		for _, it := range list {
			if it.IdentifierRef != "" {
				out[it.Identifier] = it.IdentifierRef
			}
			walk(it.Items)
		}
	}
	for _, org := range m.Organizations.Organizations {
		walk(org.Items)
	}
	return out
}

func courseTitle(c model.Course) string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	return "Untitled course"
}

func ModuleTitle(m model.Module) string {
	if t := strings.TrimSpace(m.Title); t != "" {
		return fmt.Sprintf("Module %d: %s", m.Number, t)
	}
	return fmt.Sprintf("Module %d", m.Number)
}

func LessonTitle(l model.Lesson) string {
	if t := strings.TrimSpace(l.Title); t != "" {
		return t
	}
	return fmt.Sprintf("Lesson %d", l.Index+1)
}
