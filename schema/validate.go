package schema

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	ErrInvalidSchema    = errors.New("invalid schema")
	ErrMixedRow         = errors.New("row mixes named and positional values")
	ErrEmptyRow         = errors.New("row has no values")
	ErrUnknownAlterRule = errors.New("unknown alter rule")
)

var validate = validator.New()

// Validate 校验整份描述
func (d *Database) Validate() error {
	if err := validate.Struct(d); err != nil {
		return errors.Wrap(ErrInvalidSchema, err.Error())
	}

	seen := map[string]bool{}
	for _, t := range d.Tables {
		if seen[t.Name] {
			return errors.Wrapf(ErrInvalidSchema, "duplicate table %s", t.Name)
		}
		seen[t.Name] = true

		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate 校验单张表
func (t *Table) Validate() error {
	if err := validate.Struct(t); err != nil {
		return errors.Wrapf(ErrInvalidSchema, "table %s: %v", t.Name, err)
	}

	fields := map[string]bool{}
	for _, f := range t.Fields {
		if fields[f.Name] {
			return errors.Wrapf(ErrInvalidSchema, "table %s: duplicate field %s", t.Name, f.Name)
		}
		fields[f.Name] = true
	}

	for i, idx := range t.Indexes {
		if err := t.validateIndex(idx, fields); err != nil {
			return errors.Wrapf(ErrInvalidSchema, "table %s: index %d: %v", t.Name, i, err)
		}
	}

	for i, rule := range t.AlterRules {
		if err := validateAlterRule(rule); err != nil {
			return errors.Wrapf(err, "table %s: alter rule %d", t.Name, i)
		}
	}

	for i, row := range t.Data {
		mode, err := row.Mode()
		if err != nil {
			return errors.Wrapf(err, "table %s: row %d", t.Name, i)
		}
		if mode == RowPositional && len(row.Values) > len(t.Fields) {
			return errors.Wrapf(ErrInvalidSchema, "table %s: row %d has %d values for %d fields", t.Name, i, len(row.Values), len(t.Fields))
		}
		if mode == RowNamed {
			for _, v := range row.Values {
				if !fields[v.Name] {
					return errors.Wrapf(ErrInvalidSchema, "table %s: row %d: unknown field %s", t.Name, i, v.Name)
				}
			}
		}
	}

	return nil
}

func (t *Table) validateIndex(idx *Index, fields map[string]bool) error {
	if idx.IsGroup() == (idx.Field != "") {
		return fmt.Errorf("index must name either a field or a group")
	}
	if idx.IsGroup() {
		if idx.Name == "" {
			return fmt.Errorf("group index requires a name")
		}
		for _, c := range idx.Group {
			if !fields[c.Field] {
				return fmt.Errorf("unknown field %s", c.Field)
			}
		}
		return nil
	}
	if !fields[idx.Field] {
		return fmt.Errorf("unknown field %s", idx.Field)
	}
	return nil
}

func validateAlterRule(rule AlterRule) error {
	switch r := rule.(type) {
	case RenameField:
		if r.Target == "" || r.NewName == "" {
			return errors.Wrap(ErrInvalidSchema, "rename-field requires target and new name")
		}
	case DeleteField:
		if r.Target == "" {
			return errors.Wrap(ErrInvalidSchema, "delete-field requires target")
		}
	case ModifyField:
		if r.Target == "" || r.Field == nil {
			return errors.Wrap(ErrInvalidSchema, "alter-field requires target and field")
		}
	case DropIndex:
		if r.Target == "" {
			return errors.Wrap(ErrInvalidSchema, "drop-index requires target")
		}
	default:
		return errors.Wrapf(ErrUnknownAlterRule, "%T", rule)
	}
	return nil
}
