package llm

import (
	"context"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const OfflineContent = "모의 모드 자동 응답입니다 (Mock Mode Auto-Response)"

// offlineModel satisfies the chat model contract without a provider. It
// never requests tools.
type offlineModel struct{}

var _ einomodel.ToolCallingChatModel = offlineModel{}

func NewOfflineModel() einomodel.ToolCallingChatModel {
	return offlineModel{}
}

func (offlineModel) Generate(ctx context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return schema.AssistantMessage(OfflineContent, nil), nil
}

func (m offlineModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m offlineModel) WithTools(_ []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return m, nil
}
