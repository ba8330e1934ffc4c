package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/ashwinyue/velobot/internal/config"
	"github.com/ashwinyue/velobot/internal/service/file"
	"github.com/ashwinyue/velobot/internal/service/openai"
)

// Resources 一代助手持有的全部远程资源
// 换代后由后台整体回收
type Resources struct {
	VectorStoreID    string
	ContextFiles     []openai.FileInfo
	InterpreterFiles []openai.FileInfo
}

// Provisioner 负责采集上下文材料并在远程端备妥资源
type Provisioner struct {
	client   *openai.Client
	source   file.Source
	marketDB *gorm.DB
	cfg      config.AssistantConfig
	http     *http.Client
}

// NewProvisioner 创建资源供应器
// source 与 marketDB 均可为 nil，对应能力关闭
func NewProvisioner(client *openai.Client, source file.Source, marketDB *gorm.DB, cfg config.AssistantConfig) *Provisioner {
	return &Provisioner{
		client:   client,
		source:   source,
		marketDB: marketDB,
		cfg:      cfg,
		http:     &http.Client{},
	}
}

// Provision 备妥一代助手的全部资源并渲染指令文本
// 任一步失败即中止，调用方不应继续创建助手
func (p *Provisioner) Provision(ctx context.Context) (*Resources, string, error) {
	if err := p.collect(ctx); err != nil {
		return nil, "", err
	}

	contextFiles, err := p.uploadDir(ctx, p.cfg.ContextDir)
	if err != nil {
		return nil, "", err
	}
	interpreterFiles, err := p.uploadDir(ctx, p.cfg.InterpreterDir)
	if err != nil {
		return nil, "", err
	}
	if len(contextFiles) == 0 {
		return nil, "", fmt.Errorf("no context documents found in %s", p.cfg.ContextDir)
	}

	ids := make([]string, 0, len(contextFiles))
	for _, f := range contextFiles {
		ids = append(ids, f.ID)
	}
	storeID, err := p.client.CreateVectorStore(ctx, p.cfg.Name, ids, p.cfg.VectorStoreDays)
	if err != nil {
		return nil, "", err
	}

	res := &Resources{
		VectorStoreID:    storeID,
		ContextFiles:     contextFiles,
		InterpreterFiles: interpreterFiles,
	}
	instructions, err := p.renderInstructions(res)
	if err != nil {
		p.Teardown(context.Background(), res)
		return nil, "", err
	}
	return res, instructions, nil
}

// collect 把全部上下文材料落到本地目录
// 包括抓取页面、商城库存快照和对象存储里的补充文档
func (p *Provisioner) collect(ctx context.Context) error {
	if err := os.MkdirAll(p.cfg.ContextDir, 0o755); err != nil {
		return fmt.Errorf("failed to create context dir: %w", err)
	}
	if err := os.MkdirAll(p.cfg.InterpreterDir, 0o755); err != nil {
		return fmt.Errorf("failed to create interpreter dir: %w", err)
	}

	for _, url := range p.cfg.ScrapeURLs {
		if err := p.scrape(ctx, url); err != nil {
			return err
		}
	}
	if p.cfg.InventoryEnabled {
		if err := p.dumpInventory(ctx); err != nil {
			return err
		}
	}
	if p.source != nil {
		if err := p.pull(ctx); err != nil {
			return err
		}
	}
	return nil
}

// scrape 抓取单个页面存为 html 文件
// 文件名由 URL 去掉协议前缀、路径分隔替换为下划线得到
func (p *Provisioner) scrape(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build scrape request: %w", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", url, err)
	}

	name := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	name = strings.ReplaceAll(name, "/", "_") + ".html"
	path := filepath.Join(p.cfg.ContextDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("provision: scraped %s -> %s", url, name)
	return nil
}

// bikeRow 库存快照的一行
type bikeRow struct {
	Slug           string   `json:"slug"`
	Category       string   `json:"category"`
	FrameSize      *string  `json:"frame_size"`
	RiderHeightMin *float64 `json:"rider_height_min"`
	RiderHeightMax *float64 `json:"rider_height_max"`
	Price          *float64 `json:"price"`
	Color          *string  `json:"color"`
}

// dumpInventory 从商城库导出在售车辆清单，供代码解释器使用
func (p *Provisioner) dumpInventory(ctx context.Context) error {
	if p.marketDB == nil {
		return fmt.Errorf("inventory enabled but market database not configured")
	}

	var rows []bikeRow
	err := p.marketDB.WithContext(ctx).
		Raw("SELECT slug, category, frame_size, rider_height_min, rider_height_max, price, color FROM bikes WHERE status = 'active' LIMIT 100").
		Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to query inventory: %w", err)
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}
	path := filepath.Join(p.cfg.InterpreterDir, "bikes.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("provision: dumped %d inventory rows", len(rows))
	return nil
}

// pull 从对象存储拉取补充文档到上下文目录
func (p *Provisioner) pull(ctx context.Context) error {
	names, err := p.source.List(ctx, p.cfg.StorageContextDir)
	if err != nil {
		return fmt.Errorf("failed to list storage documents: %w", err)
	}
	for _, name := range names {
		rc, err := p.source.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to read storage document %s: %w", name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to read storage document %s: %w", name, err)
		}
		path := filepath.Join(p.cfg.ContextDir, filepath.Base(name))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// uploadDir 上传目录下所有普通文件，返回远程文件信息
// 目录不存在视为空
func (p *Provisioner) uploadDir(ctx context.Context, dir string) ([]openai.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read dir %s: %w", dir, err)
	}

	var files []openai.FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		info, err := p.client.UploadFile(ctx, entry.Name(), data)
		if err != nil {
			return nil, err
		}
		files = append(files, *info)
	}
	return files, nil
}

// renderInstructions 读取指令模板并把 {文件名} 占位符替换为远程文件 id
// 未命中的占位符原样保留
func (p *Provisioner) renderInstructions(res *Resources) (string, error) {
	data, err := os.ReadFile(p.cfg.InstructionPath)
	if err != nil {
		return "", fmt.Errorf("failed to read instructions: %w", err)
	}

	text := string(data)
	for _, f := range append(res.ContextFiles, res.InterpreterFiles...) {
		text = strings.ReplaceAll(text, "{"+f.Filename+"}", f.ID)
	}
	return text, nil
}

// Teardown 回收一代资源，尽力而为
// 单个删除失败只记录日志，不影响其余资源
func (p *Provisioner) Teardown(ctx context.Context, res *Resources) {
	if res == nil {
		return
	}
	if res.VectorStoreID != "" {
		if err := p.client.DeleteVectorStore(ctx, res.VectorStoreID); err != nil {
			log.Printf("provision: failed to delete vector store %s: %v", res.VectorStoreID, err)
		}
	}
	for _, f := range append(res.ContextFiles, res.InterpreterFiles...) {
		if err := p.client.DeleteFile(ctx, f.ID); err != nil {
			log.Printf("provision: failed to delete file %s: %v", f.ID, err)
		}
	}
}
