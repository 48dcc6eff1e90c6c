// schemax 按描述文件创建、变更数据库表，并展开查询中的宏
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/hatlonely/schemax/macro"
	"github.com/hatlonely/schemax/schema"
	"github.com/hatlonely/schemax/schema/loader"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const envPrefix = "SCHEMAX"

var typeOfOptions = reflect.TypeOf(Options{})

type flags struct {
	config  string
	schema  string
	langs   []string
	current string
	prefix  string
	watch   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:           "schemax",
		Short:         "声明式的数据库结构同步工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&f.config, "config", "c", "", "配置文件 (yaml/json/toml/ini)")
	rootCmd.PersistentFlags().StringVarP(&f.schema, "schema", "s", "", "描述文件 (xml/yaml/json/toml)，覆盖配置中的 schema")
	rootCmd.PersistentFlags().StringSliceVar(&f.langs, "lang", nil, "语言列表，如 en,de")
	rootCmd.PersistentFlags().StringVar(&f.current, "current", "", "当前语言")
	rootCmd.PersistentFlags().StringVar(&f.prefix, "prefix", "", "表名前缀")

	for _, action := range []struct {
		name  string
		short string
	}{
		{"create", "按描述创建不存在的表"},
		{"alter", "按描述变更已存在的表"},
		{"sync", "表不存在时创建，存在时变更"},
	} {
		rootCmd.AddCommand(newSyncCommand(f, action.name, action.short))
	}
	rootCmd.AddCommand(newRewriteCommand(f))

	return rootCmd
}

// options 配置文件加上命令行参数
func (f *flags) options() (*Options, error) {
	options, err := LoadOptions(f.config)
	if err != nil {
		return nil, err
	}
	if f.schema != "" {
		options.Schema = f.schema
	}
	if len(f.langs) > 0 {
		options.Syncer.Languages.Languages = f.langs
	}
	if f.current != "" {
		options.Syncer.Languages.Current = f.current
	}
	if f.prefix != "" {
		options.Syncer.Prefix = f.prefix
	}
	if c := options.Syncer.Languages.Current; c != "" && !options.Syncer.Languages.Has(c) {
		return nil, errors.Errorf("current language %s is not in %v", c, options.Syncer.Languages.Languages)
	}
	return options, nil
}

func newSyncCommand(f *flags, action string, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, f, action)
		},
	}
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "描述文件变更后重新执行")
	return cmd
}

func runSync(cmd *cobra.Command, f *flags, action string) error {
	options, err := f.options()
	if err != nil {
		return err
	}
	if options.Schema == "" {
		return errors.New("schema file is required")
	}

	a, err := newApp(options)
	if a != nil {
		defer a.Close()
	}
	if err != nil {
		if a != nil && printErrors(cmd.ErrOrStderr(), a.syncer.Errors()) {
			return errFailures
		}
		return err
	}

	provider, err := loader.NewFileProviderWithOptions(&loader.FileProviderOptions{
		FilePath: options.Schema,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	defer provider.Close()

	db, err := provider.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	runErr := a.run(ctx, action, db, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if !f.watch {
		return runErr
	}

	provider.OnChange(func(db *schema.Database) error {
		a.logger.Info("schema changed", "file", provider.Path())
		return a.run(ctx, action, db, cmd.OutOrStdout(), cmd.ErrOrStderr())
	})
	if err := provider.Watch(); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func newRewriteCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite <sql>",
		Short: "展开 TABLE、LANG、LANG_ALL 宏并打印结果",
		Example: `  schemax rewrite --prefix app_ --lang en,de --current en "SELECT LANG(title) FROM TABLE(post)"
  echo "SELECT 1 FROM TABLE(post)" | schemax rewrite -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := f.options()
			if err != nil {
				return err
			}

			text := args[0]
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "failed to read stdin")
				}
				text = strings.TrimRight(string(data), "\n")
			}

			rewriter := macro.NewRewriter(options.Syncer.Prefix, options.Syncer.Database, options.Syncer.Languages)
			fmt.Fprintln(cmd.OutOrStdout(), rewriter.Rewrite(text))
			return nil
		},
	}
}
