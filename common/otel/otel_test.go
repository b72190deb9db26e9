package otel_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Samoxive/modbot/common/otel"
	"github.com/Samoxive/modbot/core/config"
)

var _ = Describe("ParseHeaders", func() {
	DescribeTable("parses OTLP header strings",
		func(input string, expected map[string]string) {
			Expect(otel.ParseHeaders(input)).To(Equal(expected))
		},
		Entry("empty", "", map[string]string{}),
		Entry("single pair", "Authorization=Bearer abc", map[string]string{"Authorization": "Bearer abc"}),
		Entry("multiple pairs with spaces", "a=1, b = 2", map[string]string{"a": "1", "b": "2"}),
		Entry("value containing equals", "x-key=a=b", map[string]string{"x-key": "a=b"}),
		Entry("malformed pair skipped", "novalue,a=1", map[string]string{"a": "1"}),
		Entry("empty key skipped", "=1,a=2", map[string]string{"a": "2"}),
	)
})

var _ = Describe("Setup", func() {
	It("is a no-op without an endpoint", func() {
		telemetry, err := otel.Setup(context.Background(), config.OTelConfig{ServiceName: "modbot"}, "development")
		Expect(err).NotTo(HaveOccurred())
		Expect(telemetry).To(BeNil())
	})
})
