package workspace

import "sort"

// Init collects workspace property overrides: subpath -> key -> value.
// Subpaths are relative to the workspace directory, e.g.
// "instance/.metadata/.plugins/org.eclipse.core.runtime/.settings/org.eclipse.ui.prefs".
type Init struct {
	props map[string]map[string]string
}

// NewInit returns an empty set of overrides.
func NewInit() *Init {
	return &Init{props: map[string]map[string]string{}}
}

// FileProps sets properties in one workspace file.
type FileProps struct {
	init    *Init
	subpath string
}

// File selects the file at subpath.
func (i *Init) File(subpath string) *FileProps {
	return &FileProps{init: i, subpath: subpath}
}

// Prop sets key=value in the selected file.
func (f *FileProps) Prop(key, value string) *FileProps {
	f.init.Set(f.subpath, key, value)
	return f
}

// Set sets key=value in the file at subpath. Later values win.
func (i *Init) Set(subpath, key, value string) {
	if i.props[subpath] == nil {
		i.props[subpath] = map[string]string{}
	}
	i.props[subpath][key] = value
}

// Merge copies every property of other into i.
func (i *Init) Merge(other *Init) {
	if other == nil {
		return
	}
	for sub, kv := range other.props {
		for k, v := range kv {
			i.Set(sub, k, v)
		}
	}
}

// Props returns a deep copy of the collected properties.
func (i *Init) Props() map[string]map[string]string {
	out := make(map[string]map[string]string, len(i.props))
	for sub, kv := range i.props {
		cp := make(map[string]string, len(kv))
		for k, v := range kv {
			cp[k] = v
		}
		out[sub] = cp
	}
	return out
}

// Subpaths lists the configured files in sorted order.
func (i *Init) Subpaths() []string {
	subs := make([]string, 0, len(i.props))
	for s := range i.props {
		subs = append(subs, s)
	}
	sort.Strings(subs)
	return subs
}
