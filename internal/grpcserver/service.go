package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"bilingualmanga/internal/segmentation"
	"bilingualmanga/pkg/models"
)

const ServiceName = "bilingualmanga.v1.Reader"

type PageRequest struct {
	MangaSlug string `json:"manga_slug"`
	Volume    int    `json:"volume"`
	Page      int    `json:"page"`
}

type BlockRequest struct {
	MangaSlug string `json:"manga_slug"`
	Volume    int    `json:"volume"`
	Page      int    `json:"page"`
	BlockNum  int    `json:"block_num"`
}

type VolumeRequest struct {
	MangaSlug string `json:"manga_slug"`
	Volume    int    `json:"volume"`
}

type BlockWordsResponse struct {
	BlockNum          int                       `json:"block_num"`
	Lines             []string                  `json:"lines"`
	Words             []segmentation.RenderWord `json:"words"`
	SegmentationError string                    `json:"segmentation_error,omitempty"`
}

type ListPagesResponse struct {
	MangaSlug string           `json:"manga_slug"`
	Volume    int              `json:"volume"`
	Pages     []models.PageRef `json:"pages"`
}

type ReaderServer interface {
	GetPageOcr(context.Context, *PageRequest) (*models.PageOcrResult, error)
	GetBlockWords(context.Context, *BlockRequest) (*BlockWordsResponse, error)
	ListPages(context.Context, *VolumeRequest) (*ListPagesResponse, error)
}

func RegisterReaderServer(s grpc.ServiceRegistrar, srv ReaderServer) {
	s.RegisterService(&ReaderServiceDesc, srv)
}

var ReaderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReaderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetPageOcr", Handler: getPageOcrHandler},
		{MethodName: "GetBlockWords", Handler: getBlockWordsHandler},
		{MethodName: "ListPages", Handler: listPagesHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func getPageOcrHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReaderServer).GetPageOcr(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetPageOcr"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ReaderServer).GetPageOcr(ctx, req.(*PageRequest))
	})
}

func getBlockWordsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(BlockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReaderServer).GetBlockWords(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetBlockWords"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ReaderServer).GetBlockWords(ctx, req.(*BlockRequest))
	})
}

func listPagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(VolumeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReaderServer).ListPages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListPages"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ReaderServer).ListPages(ctx, req.(*VolumeRequest))
	})
}

// ReaderClient calls the Reader service using the JSON codec.
type ReaderClient struct {
	cc grpc.ClientConnInterface
}

func NewReaderClient(cc grpc.ClientConnInterface) *ReaderClient {
	return &ReaderClient{cc: cc}
}

func (c *ReaderClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *ReaderClient) GetPageOcr(ctx context.Context, in *PageRequest, opts ...grpc.CallOption) (*models.PageOcrResult, error) {
	out := new(models.PageOcrResult)
	if err := c.invoke(ctx, "GetPageOcr", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReaderClient) GetBlockWords(ctx context.Context, in *BlockRequest, opts ...grpc.CallOption) (*BlockWordsResponse, error) {
	out := new(BlockWordsResponse)
	if err := c.invoke(ctx, "GetBlockWords", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReaderClient) ListPages(ctx context.Context, in *VolumeRequest, opts ...grpc.CallOption) (*ListPagesResponse, error) {
	out := new(ListPagesResponse)
	if err := c.invoke(ctx, "ListPages", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
