package schema

// LanguageSet 有序的语言列表和当前语言
type LanguageSet struct {
	Languages []string `cfg:"languages"`
	// Current 当前语言，可以为空
	Current string `cfg:"current"`
}

func NewLanguageSet(current string, languages ...string) LanguageSet {
	return LanguageSet{Languages: languages, Current: current}
}

func (l LanguageSet) Has(lang string) bool {
	for _, v := range l.Languages {
		if v == lang {
			return true
		}
	}
	return false
}

// Suffix 当前语言的列后缀，没有当前语言时为空
func (l LanguageSet) Suffix() string {
	if l.Current == "" {
		return ""
	}
	return "_" + l.Current
}

// Column 多语言字段在某种语言下的物理列名
func (l LanguageSet) Column(name string, lang string) string {
	return name + "_" + lang
}

// Columns 多语言字段的全部物理列名，按语言顺序
func (l LanguageSet) Columns(name string) []string {
	columns := make([]string, 0, len(l.Languages))
	for _, lang := range l.Languages {
		columns = append(columns, l.Column(name, lang))
	}
	return columns
}
