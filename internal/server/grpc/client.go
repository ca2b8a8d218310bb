package grpc

import (
	"context"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Client is a thin typed client for the registry service.
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

// NewClient wraps cc. A non-empty token is sent with every call.
func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, token: token}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, c.token)
	}
	return c.cc.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) Publish(ctx context.Context, in *PublishRequest) (*PublishResponse, error) {
	out := &PublishResponse{}
	if err := c.invoke(ctx, "Publish", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateTags(ctx context.Context, in *UpdateTagsRequest) (*UpdateTagsResponse, error) {
	out := &UpdateTagsResponse{}
	if err := c.invoke(ctx, "UpdateTags", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetApproved(ctx context.Context, in *SetApprovedRequest) error {
	return c.invoke(ctx, "SetApproved", in, &Empty{})
}

func (c *Client) SetSoftDeleted(ctx context.Context, in *SetSoftDeletedRequest) error {
	return c.invoke(ctx, "SetSoftDeleted", in, &Empty{})
}

func (c *Client) ResolveVersionByHash(ctx context.Context, in *ResolveRequest) (*ResolveResponse, error) {
	out := &ResolveResponse{}
	if err := c.invoke(ctx, "ResolveVersionByHash", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Restore(ctx context.Context, in *RestoreRequest) (*RestoreResponse, error) {
	out := &RestoreResponse{}
	if err := c.invoke(ctx, "Restore", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
