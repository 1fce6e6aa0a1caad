package loader_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/regmap/bus"
	"github.com/sarchlab/regmap/loader"
	"github.com/sarchlab/regmap/schema"
)

const uartMap = `
name: uart
description: UART IP core
templates:
  timer_regs:
    - name: _CTRL
      fields:
        - {name: en, bit: 0, reset: 1}
    - name: _COUNT
address_blocks:
  - name: ctrl
    base_address: 0x4000
    range: 0x1000
    usage: register
    registers:
      - name: status
        offset: 0x10
        fields:
          - {name: tx_complete, bit: 0, access: rw1c}
          - {name: rx_complete, bit: 1, access: rw1c}
          - {name: error, bits: "[11:8]", access: rw1c}
      - name: baud
        fields:
          - {name: divisor, bits: "[15:0]", reset: 0x28B0}
      - reserved: 8
      - generate: {name: TIMER, count: 3, template: timer_regs}
      - name: rxbuf
        count: 16
        stride: 4
        fields:
          - {name: data, bits: "[7:0]", access: ro}
`

func writeMap(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
	return path
}

var _ = Describe("Loader", func() {
	var (
		dir string
		b   *bus.MemoryBus
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		b = bus.NewMemoryBus(1 << 20)
	})

	Describe("End-to-end load", func() {
		var result *loader.Result

		BeforeEach(func() {
			path := writeMap(dir, "uart.yaml", uartMap)
			var err error
			result, err = loader.New().Load(path, b)
			Expect(err).To(BeNil())
			Expect(result.Diagnostics).To(BeEmpty())
		})

		It("should bind registers at block base plus offset", func() {
			blk, err := result.Map.Block("ctrl")
			Expect(err).To(BeNil())

			status, err := blk.Register("status")
			Expect(err).To(BeNil())
			Expect(status.Offset()).To(Equal(uint32(0x4010)))
		})

		It("should drive the bus through loaded registers", func() {
			blk, _ := result.Map.Block("ctrl")
			status, _ := blk.Register("status")

			Expect(b.Preload(0x4010, 0x00000F03)).To(Succeed())
			Expect(status.ReadField("error")).To(Equal(uint32(0xF)))
			Expect(status.ReadField("tx_complete")).To(Equal(uint32(1)))
		})

		It("should auto-assign offsets after explicit ones", func() {
			blk, _ := result.Map.Block("ctrl")
			baud, err := blk.Register("baud")
			Expect(err).To(BeNil())
			Expect(baud.Offset()).To(Equal(uint32(0x4014)))
		})

		It("should place generated registers past the reserved gap", func() {
			blk, _ := result.Map.Block("ctrl")
			first, err := blk.Register("TIMER1_CTRL")
			Expect(err).To(BeNil())
			// 0x14 (baud) + 4 + 8 reserved = 0x20.
			Expect(first.Offset()).To(Equal(uint32(0x4020)))

			names := blk.Registers()
			Expect(names).To(ContainElements(
				"TIMER1_CTRL", "TIMER1_COUNT",
				"TIMER2_CTRL", "TIMER2_COUNT",
				"TIMER3_CTRL", "TIMER3_COUNT"))
		})

		It("should honor template reset values through Reset", func() {
			blk, _ := result.Map.Block("ctrl")
			ctrl, _ := blk.Register("TIMER2_CTRL")

			Expect(ctrl.Reset()).To(Succeed())
			Expect(ctrl.ReadField("en")).To(Equal(uint32(1)))
		})

		It("should expose counted childless registers as arrays", func() {
			blk, _ := result.Map.Block("ctrl")
			buf, err := blk.Array("rxbuf")
			Expect(err).To(BeNil())
			Expect(buf.Len()).To(Equal(16))

			elem, err := buf.At(3)
			Expect(err).To(BeNil())
			Expect(b.Preload(elem.Offset(), 0x5A)).To(Succeed())
			Expect(elem.ReadField("data")).To(Equal(uint32(0x5A)))
		})

		It("should produce a one-read-per-register summary", func() {
			blk, _ := result.Map.Block("ctrl")
			Expect(b.Preload(0x4010, 0x00000F03)).To(Succeed())

			values, err := blk.Summary()
			Expect(err).To(BeNil())
			Expect(values["status"]).To(Equal(uint32(0x00000F03)))
			Expect(values).To(HaveKey("baud"))
			Expect(values).To(HaveKey("TIMER3_COUNT"))
		})
	})

	Describe("Validation handling", func() {
		const brokenMap = `
name: broken
address_blocks:
  - name: b
    base_address: 0
    range: 64
    registers:
      - name: ctrl
        fields:
          - {name: first, bit: 3}
          - {name: second, bits: "[4:3]"}
`

		It("should fail a strict load with the diagnostic list", func() {
			path := writeMap(dir, "broken.yaml", brokenMap)
			_, err := loader.New().Load(path, b)

			var valErr *loader.ValidationError
			Expect(errors.As(err, &valErr)).To(BeTrue())
			Expect(valErr.Diagnostics).ToNot(BeEmpty())
			Expect(valErr.Error()).To(ContainSubstring("first"))
		})

		It("should return the map and diagnostics in advisory mode", func() {
			path := writeMap(dir, "broken.yaml", brokenMap)
			l := loader.New(loader.WithValidationMode(loader.Advisory))

			result, err := l.Load(path, b)
			Expect(err).To(BeNil())
			Expect(result.Diagnostics).ToNot(BeEmpty())
			Expect(result.Map).ToNot(BeNil())
		})

		It("should support re-validation of an edited model without re-parsing", func() {
			path := writeMap(dir, "broken.yaml", brokenMap)
			l := loader.New(loader.WithValidationMode(loader.Advisory))

			result, err := l.Load(path, b)
			Expect(err).To(BeNil())
			Expect(schema.Validate(result.Model)).ToNot(BeEmpty())

			// An editor fixes the overlap in place and re-validates.
			result.Model.Blocks[0].Registers[0].Fields[0].Offset = 0
			Expect(schema.Validate(result.Model)).To(BeEmpty())
		})
	})

	Describe("Imports", func() {
		It("should merge imported blocks and templates", func() {
			writeMap(dir, "common.yaml", `
name: common
templates:
  id_regs:
    - name: _ID
      access: read-only
address_blocks:
  - name: sys
    base_address: 0x0
    range: 0x100
    registers:
      - name: version
`)
			path := writeMap(dir, "soc.yaml", `
name: soc
imports: [common.yaml]
address_blocks:
  - name: app
    base_address: 0x1000
    range: 0x100
    registers:
      - generate: {name: CORE, count: 2, template: id_regs}
`)

			result, err := loader.New().Load(path, b)
			Expect(err).To(BeNil())

			sys, err := result.Map.Block("sys")
			Expect(err).To(BeNil())
			Expect(sys.Registers()).To(ContainElement("version"))

			app, err := result.Map.Block("app")
			Expect(err).To(BeNil())
			Expect(app.Registers()).To(ContainElements("CORE1_ID", "CORE2_ID"))
		})

		It("should reject import cycles", func() {
			writeMap(dir, "a.yaml", `
name: a
imports: [b.yaml]
address_blocks: []
`)
			writeMap(dir, "b.yaml", `
name: b
imports: [a.yaml]
address_blocks: []
`)

			_, err := loader.New().Load(filepath.Join(dir, "a.yaml"), b)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("cycle"))
		})

		It("should parse a shared import once per loader", func() {
			writeMap(dir, "shared.yaml", `
name: shared
address_blocks:
  - name: shared_blk
    base_address: 0x8000
    range: 0x100
    registers:
      - name: magic
`)
			pathA := writeMap(dir, "a.yaml", `
name: a
imports: [shared.yaml]
address_blocks: []
`)
			pathB := writeMap(dir, "b.yaml", `
name: b
imports: [shared.yaml]
address_blocks: []
`)

			l := loader.New()
			resA, err := l.Load(pathA, b)
			Expect(err).To(BeNil())

			// Removing the file proves the second load hits the cache.
			Expect(os.Remove(filepath.Join(dir, "shared.yaml"))).To(Succeed())

			resB, err := l.Load(pathB, b)
			Expect(err).To(BeNil())

			for _, res := range []*loader.Result{resA, resB} {
				blk, err := res.Map.Block("shared_blk")
				Expect(err).To(BeNil())
				Expect(blk.Registers()).To(ContainElement("magic"))
			}
		})
	})

	Describe("Document loading", func() {
		It("should reject documents with unresolved imports", func() {
			doc, err := schema.Parse([]byte("name: x\nimports: [y.yaml]\naddress_blocks: []\n"))
			Expect(err).To(BeNil())

			_, err = loader.New().LoadDocument(doc, b)
			Expect(err).To(HaveOccurred())
		})

		It("should load an in-memory document", func() {
			doc, err := schema.Parse([]byte(uartMap))
			Expect(err).To(BeNil())

			result, err := loader.New().LoadDocument(doc, b)
			Expect(err).To(BeNil())
			Expect(result.Map.Blocks()).To(Equal([]string{"ctrl"}))
		})
	})
})
