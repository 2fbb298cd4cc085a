package middleware

// デプロイとビルドのメタデータを運ぶリクエストヘッダー。
// 既存のデプロイスクリプトとの互換性のため名前は変更しない。
const (
	HeaderDeployRepoURL = "X-Roku-Farm-Deploy-Repo-Url"
	HeaderUserName      = "X-Roku-Farm-User-Name"
	HeaderTargetRegion  = "X-Roku-Farm-Target-Region"
	HeaderShortGitHash  = "X-Roku-Short-Git-Hash"
	HeaderDockerRepoURL = "X-Roku-Docker-Repo-Url"
	HeaderBuildUser     = "X-Roku-Build-User"
	HeaderBuildBranch   = "X-Roku-Build-Branch"

	// HeaderRequestID はリクエストの相関IDを運ぶヘッダー。
	HeaderRequestID = "X-Request-ID"
)
