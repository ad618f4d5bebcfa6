package action_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foldermate/foldermate/pkg/action"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir  string
		manager *action.Manager
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "foldermate-state-test-*")
		Expect(err).NotTo(HaveOccurred())

		manager, err = action.NewManager(filepath.Join(tmpDir, ".foldermate"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("resolves state paths inside the config directory", func() {
		Expect(manager.StatePath).To(Equal(filepath.Join(manager.Dir, "action.json")))
		Expect(manager.LockPath).To(Equal(filepath.Join(manager.Dir, "action.lock")))
	})

	Describe("LoadState", func() {
		It("returns nil when no state file exists", func() {
			state, err := manager.LoadState()
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("round-trips a saved state", func() {
			saved := &action.State{
				PID:       os.Getpid(),
				Kind:      action.KindAnalyze,
				RunID:     "run-123",
				StartedAt: time.Now().UTC().Truncate(time.Second),
			}
			Expect(manager.SaveState(saved)).To(Succeed())

			loaded, err := manager.LoadState()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).NotTo(BeNil())
			Expect(loaded.PID).To(Equal(saved.PID))
			Expect(loaded.Kind).To(Equal(action.KindAnalyze))
			Expect(loaded.RunID).To(Equal("run-123"))
			Expect(loaded.Version).To(Equal(1))
			Expect(loaded.UpdatedAt).NotTo(BeZero())
		})

		It("fails on a corrupt state file", func() {
			Expect(os.WriteFile(manager.StatePath, []byte("{broken"), 0o600)).To(Succeed())

			_, err := manager.LoadState()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SaveState", func() {
		It("rejects nil state", func() {
			Expect(manager.SaveState(nil)).NotTo(Succeed())
		})

		It("replaces a previous state", func() {
			Expect(manager.SaveState(&action.State{PID: 1, Kind: action.KindScan})).To(Succeed())
			Expect(manager.SaveState(&action.State{PID: 2, Kind: action.KindMove})).To(Succeed())

			loaded, err := manager.LoadState()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.PID).To(Equal(2))
			Expect(loaded.Kind).To(Equal(action.KindMove))
		})
	})

	Describe("ClearState", func() {
		It("removes the state file", func() {
			Expect(manager.SaveState(&action.State{PID: 1, Kind: action.KindScan})).To(Succeed())
			Expect(manager.ClearState()).To(Succeed())

			state, err := manager.LoadState()
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("tolerates a missing state file", func() {
			Expect(manager.ClearState()).To(Succeed())
		})
	})

	Describe("Lock", func() {
		It("acquires and releases the flock", func() {
			lock, err := manager.Lock()
			Expect(err).NotTo(HaveOccurred())
			Expect(lock.Release()).To(Succeed())
		})
	})
})

var _ = Describe("ProcessAlive", func() {
	It("sees the current process", func() {
		Expect(action.ProcessAlive(os.Getpid())).To(BeTrue())
	})

	It("rejects non-positive pids", func() {
		Expect(action.ProcessAlive(0)).To(BeFalse())
		Expect(action.ProcessAlive(-1)).To(BeFalse())
	})
})
