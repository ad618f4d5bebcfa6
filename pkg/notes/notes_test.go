package notes_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foldermate/foldermate/pkg/notes"
)

var _ = Describe("Kind", func() {
	It("accepts the cluster and anchor kinds", func() {
		Expect(notes.KindCluster.Valid()).To(BeTrue())
		Expect(notes.KindAnchor.Valid()).To(BeTrue())
	})

	It("rejects unknown kinds", func() {
		Expect(notes.Kind("").Valid()).To(BeFalse())
		Expect(notes.Kind("sticky").Valid()).To(BeFalse())
	})
})

var _ = Describe("ClusterNote", func() {
	It("round-trips through encode and decode", func() {
		note := &notes.ClusterNote{
			ProposedFolderPath: "projects/alpha",
			Rationale:          "shared topic",
			Members: []notes.Member{
				{Path: "a.txt", Reason: "anchor"},
				{Path: "b.txt", Reason: "similarity 0.91"},
			},
			Confidence:   0.8,
			ActionHints:  []string{"rename"},
			ReviewNeeded: true,
		}

		payload, err := notes.EncodeCluster(note)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := notes.DecodeCluster(payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(note))
	})

	It("rejects a nil note", func() {
		_, err := notes.EncodeCluster(nil)
		Expect(err).To(HaveOccurred())
	})

	It("fails to decode malformed payloads", func() {
		_, err := notes.DecodeCluster(json.RawMessage(`{not json`))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("AnchorNote", func() {
	It("round-trips through encode and decode", func() {
		note := &notes.AnchorNote{
			ProposedFolderPath: "finance/2026",
			ProposedFilename:   "2026-03-01_alpha_invoice_hosting_v01.pdf",
			Rationale:          "newest cluster note",
			Tags:               []string{"invoice"},
			Confidence:         0.7,
		}

		payload, err := notes.EncodeAnchor(note)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := notes.DecodeAnchor(payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded).To(Equal(note))
	})

	It("rejects a nil note", func() {
		_, err := notes.EncodeAnchor(nil)
		Expect(err).To(HaveOccurred())
	})

	It("omits empty optional fields from the payload", func() {
		payload, err := notes.EncodeAnchor(&notes.AnchorNote{
			ProposedFolderPath: "unsorted",
			ProposedFilename:   "x.txt",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(payload)).NotTo(ContainSubstring("redownload_source"))
		Expect(string(payload)).NotTo(ContainSubstring("tags"))
	})
})
