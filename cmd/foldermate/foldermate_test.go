package foldermatecmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	foldermatecmder "github.com/foldermate/foldermate/cmd/foldermate"
)

var _ = Describe("NewFoldermateCmd", func() {
	It("creates the root command", func() {
		cmd := foldermatecmder.NewFoldermateCmd()
		Expect(cmd.Use).To(Equal("foldermate"))
	})

	It("registers all subcommands", func() {
		cmd := foldermatecmder.NewFoldermateCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"init", "config", "scan", "analyze", "plan", "decide",
			"move", "search", "status", "stop", "tree", "version",
		))
	})

	It("declares the global flags", func() {
		cmd := foldermatecmder.NewFoldermateCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})
