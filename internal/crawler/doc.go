// Package crawler fetches the pages of a single site breadth-first.
//
// # Architecture
//
// The Spider owns a FIFO frontier of model.CrawlTarget values and a visited
// set. Each dequeued URL is checked against the depth limit, the visited set
// and the robots.txt Gate before it is fetched. A URL is marked visited
// before the request is sent, so cyclic link graphs cannot enqueue it twice.
//
// # Components
//
//   - Spider: the breadth-first crawler
//   - Parser: extracts the title and same-site links from HTML
//   - RobotsGate: evaluates robots.txt for the wildcard user agent
//
// # Politeness
//
// The crawler sleeps a fixed delay after every processed URL, whether the
// fetch succeeded or not. robots.txt is honored unless disabled, and a
// robots.txt that cannot be loaded allows everything.
//
// # Usage
//
//	gate, err := crawler.LoadRobots(ctx, client, seed, crawler.DefaultUserAgent)
//	if err != nil {
//	    logger.Warn("robots.txt unavailable, allowing all", "error", err)
//	}
//	spider := crawler.NewSpider(client, crawler.WithMaxDepth(2), crawler.WithGate(gate))
//	result, err := spider.Crawl(ctx, seed)
package crawler
