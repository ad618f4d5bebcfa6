package sqlitevec_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/vector"
	"github.com/foldermate/foldermate/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should error when dimensions are not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ":memory:"}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("operations", func() {
		var (
			driver *sqlitevec.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			ctx = context.Background()
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		Describe("Upsert", func() {
			It("does nothing for an empty batch", func() {
				Expect(driver.Upsert(ctx, nil)).To(Succeed())
			})

			It("stores a single entry", func() {
				err := driver.Upsert(ctx, []vector.Entry{
					{ID: 1, Path: "a.txt", Embedding: []float32{0.1, 0.2, 0.3, 0.4}, ModelID: "m1"},
				})
				Expect(err).NotTo(HaveOccurred())

				entries, err := driver.Get(ctx, []int64{1})
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
				Expect(entries[0].Path).To(Equal("a.txt"))
				Expect(entries[0].ModelID).To(Equal("m1"))
				Expect(entries[0].Embedding).To(HaveLen(4))
			})

			It("replaces an existing entry with the same id", func() {
				err := driver.Upsert(ctx, []vector.Entry{
					{ID: 1, Path: "a.txt", Embedding: []float32{1, 0, 0, 0}, ModelID: "m1"},
				})
				Expect(err).NotTo(HaveOccurred())

				err = driver.Upsert(ctx, []vector.Entry{
					{ID: 1, Path: "renamed.txt", Embedding: []float32{0, 1, 0, 0}, ModelID: "m2"},
				})
				Expect(err).NotTo(HaveOccurred())

				entries, err := driver.Get(ctx, []int64{1})
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
				Expect(entries[0].Path).To(Equal("renamed.txt"))
				Expect(entries[0].ModelID).To(Equal("m2"))
				Expect(entries[0].Embedding[1]).To(BeNumerically("~", 1.0, 1e-6))
			})
		})

		Describe("Query", func() {
			BeforeEach(func() {
				err := driver.Upsert(ctx, []vector.Entry{
					{ID: 1, Path: "a.txt", Embedding: []float32{1, 0, 0, 0}, ModelID: "m1"},
					{ID: 2, Path: "b.txt", Embedding: []float32{0.9, 0.1, 0, 0}, ModelID: "m1"},
					{ID: 3, Path: "c.txt", Embedding: []float32{0, 0, 1, 0}, ModelID: "m1"},
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("ranks by descending cosine similarity", func() {
				results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(3))
				Expect(results[0].ID).To(Equal(int64(1)))
				Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-4))
				Expect(results[1].ID).To(Equal(int64(2)))
				Expect(results[2].ID).To(Equal(int64(3)))
				Expect(results[1].Score).To(BeNumerically(">", results[2].Score))
			})

			It("honors topK", func() {
				results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(2))
			})

			It("returns empty for an empty index", func() {
				empty, err := sqlitevec.NewDriver(sqlitevec.Config{
					DBPath:     ":memory:",
					Dimensions: 4,
				}, logger)
				Expect(err).NotTo(HaveOccurred())
				defer empty.Close()

				results, err := empty.Query(ctx, []float32{1, 0, 0, 0}, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(BeEmpty())
			})
		})

		Describe("QueryByID", func() {
			BeforeEach(func() {
				err := driver.Upsert(ctx, []vector.Entry{
					{ID: 1, Path: "a.txt", Embedding: []float32{1, 0, 0, 0}, ModelID: "m1"},
					{ID: 2, Path: "b.txt", Embedding: []float32{0.9, 0.1, 0, 0}, ModelID: "m1"},
					{ID: 3, Path: "c.txt", Embedding: []float32{0, 0, 1, 0}, ModelID: "m1"},
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("excludes the query id from the results", func() {
				results, err := driver.QueryByID(ctx, 1, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(2))
				for _, r := range results {
					Expect(r.ID).NotTo(Equal(int64(1)))
				}
				Expect(results[0].ID).To(Equal(int64(2)))
			})

			It("returns the full topK despite the self match", func() {
				results, err := driver.QueryByID(ctx, 1, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(2))
			})

			It("returns empty for an unknown id", func() {
				results, err := driver.QueryByID(ctx, 99, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(BeEmpty())
			})
		})

		Describe("Get", func() {
			It("returns nothing for no ids", func() {
				entries, err := driver.Get(ctx, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(BeEmpty())
			})

			It("skips unknown ids", func() {
				err := driver.Upsert(ctx, []vector.Entry{
					{ID: 1, Path: "a.txt", Embedding: []float32{1, 0, 0, 0}, ModelID: "m1"},
				})
				Expect(err).NotTo(HaveOccurred())

				entries, err := driver.Get(ctx, []int64{1, 99})
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(1))
				Expect(entries[0].ID).To(Equal(int64(1)))
			})
		})

		Describe("Delete", func() {
			It("removes entries so they no longer match queries", func() {
				err := driver.Upsert(ctx, []vector.Entry{
					{ID: 1, Path: "a.txt", Embedding: []float32{1, 0, 0, 0}, ModelID: "m1"},
					{ID: 2, Path: "b.txt", Embedding: []float32{0, 1, 0, 0}, ModelID: "m1"},
				})
				Expect(err).NotTo(HaveOccurred())

				Expect(driver.Delete(ctx, []int64{1})).To(Succeed())

				entries, err := driver.Get(ctx, []int64{1})
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(BeEmpty())

				results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(results).To(HaveLen(1))
				Expect(results[0].ID).To(Equal(int64(2)))
			})

			It("tolerates unknown ids", func() {
				Expect(driver.Delete(ctx, []int64{42})).To(Succeed())
			})
		})

		Describe("ModelID", func() {
			It("returns empty for an empty index", func() {
				modelID, err := driver.ModelID(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(modelID).To(BeEmpty())
			})

			It("returns the stored model identifier", func() {
				err := driver.Upsert(ctx, []vector.Entry{
					{ID: 1, Path: "a.txt", Embedding: []float32{1, 0, 0, 0}, ModelID: "nomic-embed-text"},
				})
				Expect(err).NotTo(HaveOccurred())

				modelID, err := driver.ModelID(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(modelID).To(Equal("nomic-embed-text"))
			})
		})
	})

	Describe("interface compliance", func() {
		It("implements vector.Driver", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})
})
