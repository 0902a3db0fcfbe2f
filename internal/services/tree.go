package services

import (
	"context"
	"inkwell/internal/models"
	"inkwell/internal/utils"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxDepth     = 10
	DefaultRepliesLimit = 10
	MaxRepliesLimit     = 100
	MaxTopLevelLimit    = 200
)

// CommentNode is the serialized form of a comment with its nested replies.
type CommentNode struct {
	ID              uint           `json:"id"`
	PostID          uint           `json:"postId"`
	ParentCommentID *uint          `json:"parentCommentId"`
	AuthorID        *uint          `json:"authorId"`
	AuthorName      string         `json:"authorName"`
	Body            string         `json:"body"`
	Image           string         `json:"image,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	LikesCount      int64          `json:"likesCount"`
	ReplyCount      int            `json:"replyCount"`
	IsLiked         bool           `json:"isLiked"`
	Depth           int            `json:"depth"`
	Replies         []*CommentNode `json:"replies"`
	HasMoreReplies  bool           `json:"hasMoreReplies"`
}

func newNode(c *models.Comment, depth, replyCount int) *CommentNode {
	author := c.Author()
	n := &CommentNode{
		ID:              c.ID,
		PostID:          c.PostID,
		ParentCommentID: c.ParentCommentID,
		AuthorName:      author.DisplayName,
		Body:            c.Body,
		Image:           c.Image,
		CreatedAt:       c.CreatedAt,
		ReplyCount:      replyCount,
		Depth:           depth,
		Replies:         []*CommentNode{},
	}
	if author.Registered {
		id := author.UserID
		n.AuthorID = &id
	}
	return n
}

func (n *CommentNode) clone() *CommentNode {
	cp := *n
	cp.Replies = make([]*CommentNode, len(n.Replies))
	for i, r := range n.Replies {
		cp.Replies[i] = r.clone()
	}
	return &cp
}

// Tree is the comment section of a post.
type Tree struct {
	TotalComments int            `json:"totalComments"`
	TopLevelCount int            `json:"topLevelCount"`
	Comments      []*CommentNode `json:"comments"`
}

func (t *Tree) clone() *Tree {
	cp := *t
	cp.Comments = make([]*CommentNode, len(t.Comments))
	for i, n := range t.Comments {
		cp.Comments[i] = n.clone()
	}
	return &cp
}

// ReplyPage is one page of a comment's replies.
type ReplyPage struct {
	TotalReplies int64          `json:"totalReplies"`
	Offset       int            `json:"offset"`
	Limit        int            `json:"limit"`
	HasMore      bool           `json:"hasMore"`
	Replies      []*CommentNode `json:"replies"`
}

// TreeOptions controls BuildTree. TopLevelLimit 0 means no cap; MaxDepth <= 0 selects the server ceiling.
type TreeOptions struct {
	TopLevelLimit int
	MaxDepth      int
}

// RepliesOptions controls BuildReplies. Limit <= 0 selects DefaultRepliesLimit.
type RepliesOptions struct {
	Offset   int
	Limit    int
	MaxDepth int
}

// thread indexes the flat comments of one post by parent.
type thread struct {
	byID     map[uint]*models.Comment
	children map[uint][]*models.Comment
	roots    []*models.Comment
}

// indexThread expects comments in creation order, so children come out oldest first.
func indexThread(comments []models.Comment) *thread {
	t := &thread{
		byID:     make(map[uint]*models.Comment, len(comments)),
		children: make(map[uint][]*models.Comment),
	}
	for i := range comments {
		t.byID[comments[i].ID] = &comments[i]
	}
	for i := range comments {
		c := &comments[i]
		if c.ParentCommentID == nil {
			t.roots = append(t.roots, c)
			continue
		}
		if _, ok := t.byID[*c.ParentCommentID]; ok {
			t.children[*c.ParentCommentID] = append(t.children[*c.ParentCommentID], c)
		}
	}
	// newest top-level first
	for i, j := 0, len(t.roots)-1; i < j; i, j = i+1, j-1 {
		t.roots[i], t.roots[j] = t.roots[j], t.roots[i]
	}
	return t
}

// depthOf counts ancestors; the walk is bounded by the number of comments.
func (t *thread) depthOf(c *models.Comment) int {
	depth := 0
	for c.ParentCommentID != nil && depth <= len(t.byID) {
		parent, ok := t.byID[*c.ParentCommentID]
		if !ok {
			break
		}
		c = parent
		depth++
	}
	return depth
}

// node builds c and its descendants. level counts nesting below the returned list;
// children are attached only while level < maxDepth.
func (t *thread) node(c *models.Comment, depth, level, maxDepth int) *CommentNode {
	kids := t.children[c.ID]
	n := newNode(c, depth, len(kids))
	if level >= maxDepth {
		n.HasMoreReplies = len(kids) > 0
		return n
	}
	for _, k := range kids {
		n.Replies = append(n.Replies, t.node(k, depth+1, level+1, maxDepth))
	}
	return n
}

func walkNodes(nodes []*CommentNode, fn func(*CommentNode)) {
	stack := append([]*CommentNode(nil), nodes...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(n)
		stack = append(stack, n.Replies...)
	}
}

func nodeIDs(nodes []*CommentNode) []uint {
	var ids []uint
	walkNodes(nodes, func(n *CommentNode) { ids = append(ids, n.ID) })
	return ids
}

// TreeAssembler turns flat comment rows into nested, depth-bounded trees.
type TreeAssembler struct {
	store    *CommentStore
	likes    *LikeLedger
	cache    *TreeCache
	maxDepth int
}

// NewTreeAssembler creates an assembler. cache may be nil; maxDepth is the ceiling for client requests.
func NewTreeAssembler(store *CommentStore, likes *LikeLedger, cache *TreeCache, maxDepth int) *TreeAssembler {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &TreeAssembler{store: store, likes: likes, cache: cache, maxDepth: maxDepth}
}

func (a *TreeAssembler) clampDepth(requested int) int {
	if requested <= 0 || requested > a.maxDepth {
		return a.maxDepth
	}
	return requested
}

// Invalidate forgets cached trees of a post after a write.
func (a *TreeAssembler) Invalidate(postID uint) {
	if a.cache != nil {
		a.cache.Invalidate(postID)
	}
}

// BuildTree assembles the comment tree of a post. viewerID 0 means anonymous.
func (a *TreeAssembler) BuildTree(ctx context.Context, postID, viewerID uint, opts TreeOptions) (*Tree, error) {
	start := time.Now()
	depth := a.clampDepth(opts.MaxDepth)
	limit := utils.Clamp(opts.TopLevelLimit, 0, MaxTopLevelLimit)

	build := func() (*Tree, error) {
		return a.buildShared(ctx, postID, limit, depth)
	}

	var (
		tree *Tree
		hit  bool
		err  error
	)
	if a.cache != nil {
		tree, hit, err = a.cache.GetOrBuild(postID, limit, depth, build)
	} else {
		tree, err = build()
	}
	if err != nil {
		return nil, err
	}

	if err := a.markLiked(ctx, viewerID, tree.Comments); err != nil {
		return nil, err
	}

	label := "miss"
	if hit {
		label = "hit"
	}
	treeBuildSeconds.WithLabelValues(label).Observe(time.Since(start).Seconds())
	utils.Logger.Debug("comment tree built",
		zap.Uint("post_id", postID),
		zap.Int("comments", tree.TotalComments),
		zap.Bool("cache_hit", hit))
	return tree, nil
}

// buildShared builds the viewer-independent part of a tree.
func (a *TreeAssembler) buildShared(ctx context.Context, postID uint, limit, depth int) (*Tree, error) {
	comments, err := a.store.ListForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	t := indexThread(comments)

	roots := t.roots
	tree := &Tree{TotalComments: len(comments), TopLevelCount: len(roots)}
	if limit > 0 && len(roots) > limit {
		roots = roots[:limit]
	}

	tree.Comments = make([]*CommentNode, 0, len(roots))
	for _, r := range roots {
		tree.Comments = append(tree.Comments, t.node(r, 0, 0, depth))
	}

	if err := a.fillLikeCounts(ctx, tree.Comments); err != nil {
		return nil, err
	}
	return tree, nil
}

// BuildReplies returns one page of a comment's replies with their own nested replies.
func (a *TreeAssembler) BuildReplies(ctx context.Context, commentID, viewerID uint, opts RepliesOptions) (*ReplyPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRepliesLimit
	}
	limit = utils.Clamp(limit, 1, MaxRepliesLimit)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	depth := a.clampDepth(opts.MaxDepth)

	page, err := a.store.GetDirectReplies(ctx, commentID, offset, limit)
	if err != nil {
		return nil, err
	}

	comments, err := a.store.ListForPost(ctx, page.Parent.PostID)
	if err != nil {
		return nil, err
	}
	t := indexThread(comments)

	replyDepth := 1
	if parent, ok := t.byID[commentID]; ok {
		replyDepth = t.depthOf(parent) + 1
	}

	result := &ReplyPage{
		TotalReplies: page.Total,
		Offset:       offset,
		Limit:        limit,
		HasMore:      page.HasMore,
		Replies:      make([]*CommentNode, 0, len(page.Replies)),
	}
	for i := range page.Replies {
		reply := &page.Replies[i]
		if indexed, ok := t.byID[reply.ID]; ok {
			result.Replies = append(result.Replies, t.node(indexed, replyDepth, 0, depth))
			continue
		}
		// created after the thread was loaded
		result.Replies = append(result.Replies, newNode(reply, replyDepth, 0))
	}

	if err := a.fillLikeCounts(ctx, result.Replies); err != nil {
		return nil, err
	}
	if err := a.markLiked(ctx, viewerID, result.Replies); err != nil {
		return nil, err
	}
	return result, nil
}

// BuildNode serializes a single comment without nested replies.
func (a *TreeAssembler) BuildNode(ctx context.Context, commentID, viewerID uint) (*CommentNode, error) {
	comment, err := a.store.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	depth, err := a.store.Depth(ctx, commentID)
	if err != nil {
		return nil, err
	}
	replies, err := a.store.ReplyCount(ctx, commentID)
	if err != nil {
		return nil, err
	}

	n := newNode(comment, depth, replies)
	n.HasMoreReplies = replies > 0
	if n.LikesCount, err = a.likes.CountFor(ctx, commentID); err != nil {
		return nil, err
	}
	if err := a.markLiked(ctx, viewerID, []*CommentNode{n}); err != nil {
		return nil, err
	}
	return n, nil
}

// BuildFlat serializes comments as childless nodes for moderation listings. Depth is left at 0.
func (a *TreeAssembler) BuildFlat(ctx context.Context, comments []models.Comment) ([]*CommentNode, error) {
	nodes := make([]*CommentNode, 0, len(comments))
	for i := range comments {
		nodes = append(nodes, newNode(&comments[i], 0, 0))
	}
	if err := a.fillLikeCounts(ctx, nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (a *TreeAssembler) fillLikeCounts(ctx context.Context, nodes []*CommentNode) error {
	counts, err := a.likes.CountsFor(ctx, nodeIDs(nodes))
	if err != nil {
		return err
	}
	walkNodes(nodes, func(n *CommentNode) { n.LikesCount = counts[n.ID] })
	return nil
}

func (a *TreeAssembler) markLiked(ctx context.Context, viewerID uint, nodes []*CommentNode) error {
	if viewerID == 0 || len(nodes) == 0 {
		return nil
	}
	liked, err := a.likes.LikedCommentIDs(ctx, viewerID, nodeIDs(nodes))
	if err != nil {
		return err
	}
	walkNodes(nodes, func(n *CommentNode) { n.IsLiked = liked[n.ID] })
	return nil
}
