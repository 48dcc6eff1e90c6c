package schema

// AlterRule 显式的变更规则，只能是下面四种之一
type AlterRule interface {
	// Tag 描述文件中的规则标签
	Tag() string
	alterRule()
}

// RenameField 重命名列，保留原列的类型、默认值和可空属性
type RenameField struct {
	Target  string
	NewName string
}

// DeleteField 删除列
type DeleteField struct {
	Target string
}

// ModifyField 按新的字段描述修改列
type ModifyField struct {
	Target string
	Field  *Field
}

// DropIndex 删除索引
type DropIndex struct {
	Target string
}

const (
	TagRenameField = "rename-field"
	TagDeleteField = "delete-field"
	TagModifyField = "alter-field"
	TagDropIndex   = "drop-index"
)

func (RenameField) Tag() string { return TagRenameField }
func (DeleteField) Tag() string { return TagDeleteField }
func (ModifyField) Tag() string { return TagModifyField }
func (DropIndex) Tag() string   { return TagDropIndex }

func (RenameField) alterRule() {}
func (DeleteField) alterRule() {}
func (ModifyField) alterRule() {}
func (DropIndex) alterRule()   {}
