package workspace_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/action"
	"github.com/foldermate/foldermate/pkg/organizer"
	"github.com/foldermate/foldermate/pkg/workspace"
)

var _ = Describe("Open", func() {
	var (
		tmpDir    string
		configDir string
		ctx       context.Context
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "foldermate-workspace-test-*")
		Expect(err).NotTo(HaveOccurred())

		configDir = filepath.Join(tmpDir, ".foldermate")
		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("assembles the full stack from defaults", func() {
		ws, err := workspace.Open(ctx, workspace.Options{ConfigDir: configDir}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer ws.Close()

		Expect(ws.Config).NotTo(BeNil())
		Expect(ws.Store).NotTo(BeNil())
		Expect(ws.Cache).NotTo(BeNil())
		Expect(ws.Coordinator).NotTo(BeNil())
		Expect(ws.Publisher).NotTo(BeNil())
		Expect(ws.Organizer).NotTo(BeNil())
		Expect(ws.Manager).NotTo(BeNil())
		Expect(ws.Vector).NotTo(BeNil())
		Expect(ws.Embedder).NotTo(BeNil())
	})

	It("places relative storage paths inside the config directory", func() {
		ws, err := workspace.Open(ctx, workspace.Options{ConfigDir: configDir}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		defer ws.Close()

		_, err = os.Stat(filepath.Join(ws.Manager.Dir, "organizer.sqlite"))
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("RunStage", func() {
	var (
		tmpDir  string
		manager *action.Manager
		ws      *workspace.Workspace
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "foldermate-runstage-test-*")
		Expect(err).NotTo(HaveOccurred())

		manager, err = action.NewManager(filepath.Join(tmpDir, ".foldermate"))
		Expect(err).NotTo(HaveOccurred())

		ws = &workspace.Workspace{
			Coordinator: action.NewCoordinator(zap.NewNop()),
			Manager:     manager,
			Logger:      zap.NewNop(),
		}
		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("runs the stage and clears the state afterwards", func() {
		ran := false
		result, err := ws.RunStage(ctx, action.KindScan, func(context.Context) (*organizer.BatchResult, error) {
			ran = true

			// The state file is visible to other processes while running.
			state, loadErr := manager.LoadState()
			Expect(loadErr).NotTo(HaveOccurred())
			Expect(state).NotTo(BeNil())
			Expect(state.Kind).To(Equal(action.KindScan))
			Expect(state.PID).To(Equal(os.Getpid()))
			Expect(state.RunID).NotTo(BeEmpty())

			return &organizer.BatchResult{Kind: action.KindScan, Processed: 1, Succeeded: 1}, nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ran).To(BeTrue())
		Expect(result.Succeeded).To(Equal(1))

		state, err := manager.LoadState()
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("replaces stale state left by a dead process", func() {
		cmd := exec.Command("true")
		Expect(cmd.Run()).To(Succeed())
		deadPID := cmd.Process.Pid

		Expect(manager.SaveState(&action.State{
			PID:  deadPID,
			Kind: action.KindAnalyze,
		})).To(Succeed())

		_, err := ws.RunStage(ctx, action.KindScan, func(context.Context) (*organizer.BatchResult, error) {
			return &organizer.BatchResult{Kind: action.KindScan}, nil
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("propagates the stage's error", func() {
		_, err := ws.RunStage(ctx, action.KindMove, func(context.Context) (*organizer.BatchResult, error) {
			return nil, os.ErrPermission
		})
		Expect(err).To(MatchError(os.ErrPermission))

		state, loadErr := manager.LoadState()
		Expect(loadErr).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})
})
