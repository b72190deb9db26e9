package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Samoxive/modbot/core/config"
)

func setEnv(key, value string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(key string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Unsetenv(key)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		}
	})
}

var _ = Describe("ParseChannelMap", func() {
	It("parses the compiled-in table", func() {
		m, err := config.ParseChannelMap(config.DefaultChannelMap)
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(map[string]string{
			"145457131640848384": "335451227028717568",
			"238666723824238602": "1315930244682743839",
		}))
	})

	It("tolerates whitespace and trailing commas", func() {
		m, err := config.ParseChannelMap(" 1:2 , 3:4, ")
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(HaveLen(2))
		Expect(m["3"]).To(Equal("4"))
	})

	DescribeTable("rejects malformed tables",
		func(input string) {
			_, err := config.ParseChannelMap(input)
			Expect(err).To(HaveOccurred())
		},
		Entry("empty", ""),
		Entry("missing separator", "12345"),
		Entry("non numeric guild", "abc:123"),
		Entry("non numeric channel", "123:abc"),
		Entry("missing channel", "123:"),
		Entry("duplicate guild", "1:2,1:3"),
	)
})

var _ = Describe("Load", func() {
	BeforeEach(func() {
		setEnv("MODBOT_ENV", "test")
		setEnv("LLM_API_KEY", "sk-test")
		setEnv("DISCORD_TOKEN", "discord-token")
		for _, key := range []string{
			"MODBOT_CHANNEL_MAP", "LLM_PROVIDER", "LLM_MODEL", "CLASSIFY_TIMEOUT",
			"LLM_SERIALIZE", "MODBOT_SELF_ID", "REPORT_SUMMARY_LIMIT", "ADMIN_PORT",
		} {
			unsetEnv(key)
		}
	})

	It("loads defaults", func() {
		cfg, err := config.Load(config.ServiceTypeBot)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Provider).To(Equal("openai"))
		Expect(cfg.LLM.Model).To(Equal("meta-llama/Llama-3.2-3B-Instruct"))
		Expect(cfg.LLM.Timeout).To(Equal(30 * time.Second))
		Expect(cfg.LLM.Serialize).To(BeFalse())
		Expect(cfg.Moderation.SelfID).To(Equal(config.DefaultSelfID))
		Expect(cfg.Moderation.SummaryLimit).To(Equal(512))
		Expect(cfg.Moderation.ChannelMap).To(HaveLen(2))
		Expect(cfg.Admin.Enabled()).To(BeTrue())
		Expect(cfg.OTel.Enabled()).To(BeFalse())
	})

	It("reads overrides", func() {
		setEnv("MODBOT_CHANNEL_MAP", "10:20")
		setEnv("CLASSIFY_TIMEOUT", "5s")
		setEnv("LLM_SERIALIZE", "true")
		setEnv("ADMIN_PORT", "")

		cfg, err := config.Load(config.ServiceTypeBot)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Moderation.ChannelMap).To(Equal(map[string]string{"10": "20"}))
		Expect(cfg.LLM.Timeout).To(Equal(5 * time.Second))
		Expect(cfg.LLM.Serialize).To(BeTrue())
		Expect(cfg.Admin.Enabled()).To(BeFalse())
	})

	It("fails when the model credential is missing", func() {
		setEnv("LLM_API_KEY", "")
		_, err := config.Load(config.ServiceTypeBot)
		Expect(err).To(MatchError(ContainSubstring("LLM_API_KEY")))
	})

	It("fails when the gateway credential is missing for the bot", func() {
		setEnv("DISCORD_TOKEN", "")
		_, err := config.Load(config.ServiceTypeBot)
		Expect(err).To(MatchError(ContainSubstring("DISCORD_TOKEN")))
	})

	It("does not need a gateway credential for the evaluation harness", func() {
		setEnv("DISCORD_TOKEN", "")
		_, err := config.Load(config.ServiceTypeEvaluate)
		Expect(err).NotTo(HaveOccurred())
	})

	It("fails on an unparseable channel map", func() {
		setEnv("MODBOT_CHANNEL_MAP", "not-a-map")
		_, err := config.Load(config.ServiceTypeBot)
		Expect(err).To(MatchError(ContainSubstring("MODBOT_CHANNEL_MAP")))
	})

	It("fails on an unknown provider", func() {
		setEnv("LLM_PROVIDER", "mistral")
		_, err := config.Load(config.ServiceTypeBot)
		Expect(err).To(MatchError(ContainSubstring("LLM_PROVIDER")))
	})
})
