package factory

import (
	"strings"

	"thrx-be/internal/constant"
)

type Kind string

const (
	KindCloud  Kind = "cloud"
	KindLocal  Kind = "local"
	KindHosted Kind = "hosted"
)

// HostedModelPrefix routes a model id to the OpenAI compatible hosted
// endpoint, e.g. "hf:meta-llama/Llama-3.1-8B-Instruct".
const HostedModelPrefix = "hf:"

const (
	gb = 1000 * 1000 * 1000
	mb = 1000 * 1000
)

type ModelInfo struct {
	Id          string
	Name        string
	Kind        Kind
	Description string
	Provider    string
	Category    string // mobile | desktop | cloud
	SizeBytes   uint64
	VramBytes   uint64
}

var Catalog = []ModelInfo{
	{Id: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Kind: KindCloud, Description: "Newest, fast, multimodal", Provider: "Google", Category: "cloud"},
	{Id: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Kind: KindCloud, Description: "Previous stable version", Provider: "Google", Category: "cloud"},

	{Id: "llama3.2:1b", Name: "Llama 3.2 1B", Kind: KindLocal, Description: "Ultra-lightweight", Provider: "Meta", Category: "mobile", SizeBytes: 880 * mb, VramBytes: 1500 * mb},
	{Id: "phi3.5:latest", Name: "Phi-3.5 Mini", Kind: KindLocal, Description: "High performance, efficient", Provider: "Microsoft", Category: "mobile", SizeBytes: 2500 * mb, VramBytes: 3500 * mb},
	{Id: "llama3.2:3b", Name: "Llama 3.2 3B", Kind: KindLocal, Description: "Balanced performance & speed", Provider: "Meta", Category: "mobile", SizeBytes: 2400 * mb, VramBytes: 3500 * mb},

	{Id: "gemma2:9b", Name: "Gemma 2 9B", Kind: KindLocal, Description: "Google's open model (High RAM)", Provider: "Google", Category: "desktop", SizeBytes: 6400 * mb, VramBytes: 10 * gb},
	{Id: "openhermes:latest", Name: "Hermes 2.5 Mistral", Kind: KindLocal, Description: "Instruction following", Provider: "Nous Research", Category: "desktop", SizeBytes: 4100 * mb, VramBytes: 6 * gb},
	{Id: "qwen2:7b", Name: "Qwen2 7B", Kind: KindLocal, Description: "Strong multilingual model", Provider: "Alibaba", Category: "desktop", SizeBytes: 4400 * mb, VramBytes: 6 * gb},
}

// KindOf classifies any model id, listed or not.
func KindOf(model string) Kind {
	switch {
	case strings.HasPrefix(model, HostedModelPrefix):
		return KindHosted
	case strings.Contains(model, constant.CloudModelMarker):
		return KindCloud
	default:
		return KindLocal
	}
}

func Lookup(model string) (ModelInfo, bool) {
	for _, m := range Catalog {
		if m.Id == model {
			return m, true
		}
	}
	return ModelInfo{}, false
}
