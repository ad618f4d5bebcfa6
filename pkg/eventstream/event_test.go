package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foldermate/foldermate/pkg/eventstream"
)

var _ = Describe("NewFileEvent", func() {
	It("fills in schema version, id and timestamp", func() {
		event := eventstream.NewFileEvent(eventstream.EventTypeFileAnalyzed, "docs/readme.md")

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeFileAnalyzed))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.Path).To(Equal("docs/readme.md"))
		Expect(event.EmittedAt).To(BeTemporally("~", time.Now(), time.Minute))
	})

	It("generates a distinct id per event", func() {
		a := eventstream.NewFileEvent(eventstream.EventTypeFileMoved, "a.txt")
		b := eventstream.NewFileEvent(eventstream.EventTypeFileMoved, "a.txt")
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("serializes without empty optional fields", func() {
		event := eventstream.NewFileEvent(eventstream.EventTypeFileAnalyzed, "a.txt")

		data, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).NotTo(ContainSubstring("destination"))
		Expect(string(data)).NotTo(ContainSubstring("detail"))
	})

	It("serializes the destination for move events", func() {
		event := eventstream.NewFileEvent(eventstream.EventTypeFileMoved, "a.txt")
		event.Destination = "archive/a.txt"

		data, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"destination":"archive/a.txt"`))
	})
})
