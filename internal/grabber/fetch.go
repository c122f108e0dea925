package grabber

import (
	"context"
	"errors"

	"github.com/John-Robertt/epgrab/internal/infra/cache"
	"github.com/John-Robertt/epgrab/internal/infra/httpx"
	"github.com/John-Robertt/epgrab/internal/infra/logx"
)

// Fetch 先读缓存 <ns>/<key>，未命中再 GET u 并回写。
// 缓存读写失败只记日志，不影响抓取结果；网络错误原样返回。
func (e Env) Fetch(ctx context.Context, ns, key, u string) ([]byte, error) {
	log := e.Log.Named(ns)
	if b, ok, err := e.Cache.Get(ns, key); err != nil {
		log.Emit(logx.DEBUG, "读取缓存 %s 失败：%v", key, err)
	} else if ok {
		log.Emit(logx.DEBUG, "缓存命中 %s", key)
		return b, nil
	}

	b, err := httpx.GetBytes(ctx, e.HTTP, u)
	if err != nil {
		return nil, err
	}
	if err := e.Cache.Put(ns, key, b); err != nil && !errors.Is(err, cache.ErrReadOnly) {
		log.Emit(logx.WARNING, "写入缓存 %s 失败：%v", key, err)
	}
	return b, nil
}
