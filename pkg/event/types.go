package event

// Handler はバックエンド関数に処理を振り分ける識別子（api-handler）。
type Handler string

const (
	// HandlerGetState はファームAZの希望状態を取得する。
	HandlerGetState Handler = "get-state"
	// HandlerReportState はファームAZの実際の状態を報告する。
	HandlerReportState Handler = "report-state"
	// HandlerUpdateService はファームにサービスをデプロイする。
	HandlerUpdateService Handler = "update-service"
	// HandlerChangeServiceMode はサービスのモードを変更する。
	HandlerChangeServiceMode Handler = "change-service-mode"
	// HandlerDeleteService はファームからサービスを削除する。
	HandlerDeleteService Handler = "delete-service"
	// HandlerGetFarmInspect はファームの検査結果を取得する。
	HandlerGetFarmInspect Handler = "get-farm-inspect"
	// HandlerGetServiceDesiredState はサービスの希望状態を取得する。
	HandlerGetServiceDesiredState Handler = "get-service-desired-state"
	// HandlerPostServiceBuildInfo はビルド情報を登録してバージョン文字列を得る。
	HandlerPostServiceBuildInfo Handler = "post-service-build-info"
	// HandlerGetServiceStatusEverywhere は全ファームにおけるサービスの状態を取得する。
	HandlerGetServiceStatusEverywhere Handler = "get-service-status-everywhere"
)

// Handlers は定義済みのすべてのHandler。
var Handlers = []Handler{
	HandlerGetState,
	HandlerReportState,
	HandlerUpdateService,
	HandlerChangeServiceMode,
	HandlerDeleteService,
	HandlerGetFarmInspect,
	HandlerGetServiceDesiredState,
	HandlerPostServiceBuildInfo,
	HandlerGetServiceStatusEverywhere,
}

// KeyHandler はイベント内の振り分け識別子のキー。
const KeyHandler = "api-handler"

// イベントのフィールド名。バックエンド関数との取り決めなので変更しないこと。
const (
	KeyFarmName          = "farmName"
	KeyAZ                = "az"
	KeyState             = "state"
	KeyService           = "service"
	KeyServiceJSON       = "service-json"
	KeyTargetRegion      = "targetRegion"
	KeyVersionString     = "versionString"
	KeyRepoURL           = "repoUrl"
	KeyUser              = "user"
	KeyMode              = "mode"
	KeyServiceJSONBase64 = "serviceJsonBase64"
	KeyShortGitHash      = "shortGitHash"
	KeyDockerRepoURL     = "dockerRepoUrl"
	KeyBuildUser         = "buildUser"
	KeyBuildBranch       = "buildBranch"
)

// Event はバックエンド関数に渡す呼び出しイベント。
// 値はすべて文字列で、リクエストごとに新しく組み立てる。
type Event map[string]string
