package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/neovim/go-client/nvim"
	"github.com/spf13/cobra"

	"github.com/runger/nvpick/internal/host/nvimhost"
	"github.com/runger/nvpick/internal/layout"
	"github.com/runger/nvpick/internal/picker"
	"github.com/runger/nvpick/internal/projectcmd"
)

// RPC notifications the editor commands send.
const (
	notifyProject = "nvpick_project"
	notifyList    = "nvpick_list"
)

// resultBufferName names the split showing project command output.
const resultBufferName = "Command result"

var nvimCmd = &cobra.Command{
	Use:   "nvim",
	Short: "Serve pickers to Neovim over stdio",
	Long: `Run as a Neovim RPC job. Start it from Neovim with:

  lua vim.fn.jobstart({'nvpick', 'nvim'}, {rpc = true})

It defines two commands:

  :NvpickProject [dir]   pick and run a project command; output opens in
                         a "Command result" split
  :NvpickList item...    pick one item; the choice is stored in
                         g:nvpick_selection and a User NvpickSelected
                         autocommand fires`,
	GroupID: groupPicker,
	Args:    cobra.NoArgs,
	RunE:    runNvim,
}

func runNvim(cmd *cobra.Command, args []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	logf := func(format string, a ...any) {
		env.logger.Debug(fmt.Sprintf(format, a...))
	}
	v, err := nvim.New(os.Stdin, os.Stdout, os.Stdout, logf)
	if err != nil {
		return fmt.Errorf("failed to attach to neovim: %w", err)
	}
	errc := make(chan error, 1)
	go func() { errc <- v.Serve() }()

	store, closeStore := env.openProjectStore()
	defer closeStore()

	p, err := newNvimPlugin(commandContext(cmd), v, env, store)
	if err != nil {
		_ = v.Close()
		return err
	}
	if err := p.defineCommands(); err != nil {
		_ = v.Close()
		return err
	}

	env.logger.Info("serving neovim", "channel", v.ChannelID())
	return <-errc
}

// nvimPlugin answers the editor commands.
type nvimPlugin struct {
	ctx    context.Context
	v      *nvim.Nvim
	host   *nvimhost.Host
	engine *picker.Engine
	runner *projectcmd.Runner
	layout layout.Config
	logger *slog.Logger
}

func newNvimPlugin(ctx context.Context, v *nvim.Nvim, env *appEnv, store projectcmd.Store) (*nvimPlugin, error) {
	h, err := nvimhost.New(v, env.logger)
	if err != nil {
		return nil, err
	}
	settings, err := projectcmd.SettingsFromConfig(env.cfg)
	if err != nil {
		return nil, err
	}

	engine := picker.NewEngine(h, env.engineOptions()...)
	p := &nvimPlugin{
		ctx:    ctx,
		v:      v,
		host:   h,
		engine: engine,
		runner: projectcmd.New(engine, store,
			projectcmd.WithLogger(env.logger),
			projectcmd.WithSettings(settings),
		),
		layout: settings.Layout,
		logger: env.logger,
	}

	if err := v.RegisterHandler(notifyProject, p.project); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", notifyProject, err)
	}
	if err := v.RegisterHandler(notifyList, p.list); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", notifyList, err)
	}
	return p, nil
}

// commandDefs returns the Ex commands that notify channel.
func commandDefs(channel int) []string {
	return []string{
		fmt.Sprintf("command! -nargs=? -complete=dir NvpickProject call rpcnotify(%d, '%s', <q-args>)", channel, notifyProject),
		fmt.Sprintf("command! -nargs=* NvpickList call rpcnotify(%d, '%s', [<f-args>])", channel, notifyList),
	}
}

func (p *nvimPlugin) defineCommands() error {
	for _, def := range commandDefs(p.v.ChannelID()) {
		if err := p.v.Command(def); err != nil {
			return fmt.Errorf("failed to define command: %w", err)
		}
	}
	return nil
}

// project handles :NvpickProject. dir is relative to the editor's
// working directory.
func (p *nvimPlugin) project(dir string) {
	var cwd string
	if err := p.v.Call("getcwd", &cwd); err != nil {
		p.host.Notify(fmt.Sprintf("cannot read working directory: %v", err))
		return
	}
	root := cwd
	if dir != "" {
		root = dir
		if !filepath.IsAbs(root) {
			root = filepath.Join(cwd, root)
		}
	}

	p.host.Do(func() {
		_, err := p.runner.Open(p.ctx, root, func(command string) {
			go p.runAndShow(root, command)
		})
		if err != nil {
			p.host.Notify(err.Error())
		}
	})
}

func (p *nvimPlugin) runAndShow(root, command string) {
	rep := p.runner.Run(p.ctx, root, command)
	if err := p.host.ShowScratch(resultBufferName, rep.Lines); err != nil {
		p.logger.Warn("failed to show command output", "error", err)
	}
}

// list handles :NvpickList.
func (p *nvimPlugin) list(items []string) {
	p.host.Do(func() {
		_, err := p.engine.OpenReadOnly(items, p.layout, func(r picker.Result) {
			p.publish(r.Text)
		})
		if err != nil {
			p.host.Notify(err.Error())
		}
	})
}

// publish stores the selection in g:nvpick_selection and fires
// User NvpickSelected.
func (p *nvimPlugin) publish(text string) {
	if err := p.v.SetVar("nvpick_selection", text); err != nil {
		p.logger.Warn("failed to set selection", "error", err)
		return
	}
	if err := p.v.Command("doautocmd <nomodeline> User NvpickSelected"); err != nil {
		p.logger.Debug("selection autocommand failed", "error", err)
	}
}
